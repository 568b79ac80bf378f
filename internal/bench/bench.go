// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bench drives a ring buffer with configurable producers and
// consumers and measures end-to-end throughput.
//
// Payloads are random, and every consumer keeps a running sum of what it
// sees. A run fails if any sum differs from what the producers published,
// so a throughput number is only reported for a run that lost nothing.
package bench

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/disruptor"
	"code.hybscloud.com/disruptor/internal/logging"
	"code.hybscloud.com/iox"
	"github.com/google/uuid"
	"github.com/valyala/fastrand"
)

// ErrChecksum indicates a consumer did not see exactly the published events.
var ErrChecksum = errors.New("bench: checksum mismatch")

// payloadRange bounds a single payload so sums of a full run never overflow.
const payloadRange = 1 << 20

type sample struct {
	Value uint64
}

// Result reports one completed run.
type Result struct {
	RunID     string        `json:"run_id"`
	Mode      string        `json:"mode"`
	Claim     string        `json:"claim"`
	Wait      string        `json:"wait"`
	Size      int           `json:"size"`
	Producers int           `json:"producers"`
	Consumers int           `json:"consumers"`
	Events    int64         `json:"events"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	OpsPerSec float64       `json:"ops_per_sec"`
}

func (r *Result) String() string {
	return fmt.Sprintf("%s/%s/%s size=%d producers=%d consumers=%d events=%d elapsed=%s throughput=%.0f ops/s",
		r.Mode, r.Claim, r.Wait, r.Size, r.Producers, r.Consumers, r.Events, r.Elapsed, r.OpsPerSec)
}

// summer adds up every payload it handles.
type summer struct {
	sum uint64
}

func (s *summer) OnEvent(ev *sample, sequence int64, endOfBatch bool) error {
	s.sum += ev.Value
	return nil
}

type workSummer struct {
	sum uint64
}

func (s *workSummer) OnEvent(ev *sample) error {
	s.sum += ev.Value
	return nil
}

// Run executes the benchmark described by cfg.
// Processors run on an ants pool; producers run on their own goroutines.
func Run(cfg Config, logger logging.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	b, err := cfg.Builder()
	if err != nil {
		return nil, err
	}
	rb := disruptor.Build(b, func() sample { return sample{} })

	exec, err := disruptor.NewPoolExecutor(cfg.Consumers)
	if err != nil {
		return nil, fmt.Errorf("bench: create pool: %w", err)
	}
	defer exec.Release()

	c, err := newConsumers(rb, cfg, logger)
	if err != nil {
		return nil, err
	}

	runID := uuid.Must(uuid.NewV7()).String()
	logger.Infof("bench: starting run %s: %s/%s/%s size=%d producers=%d consumers=%d events=%d",
		runID, cfg.Mode, cfg.Claim, cfg.Wait, rb.BufferSize(), cfg.Producers, cfg.Consumers, cfg.Events)

	start := time.Now()
	if err := c.start(exec); err != nil {
		return nil, err
	}
	published := produce(rb, cfg)
	c.await(cfg.Events - 1)
	if err := c.stop(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if err := c.verify(published); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     runID,
		Mode:      cfg.Mode,
		Claim:     cfg.Claim,
		Wait:      cfg.Wait,
		Size:      rb.BufferSize(),
		Producers: cfg.Producers,
		Consumers: cfg.Consumers,
		Events:    cfg.Events,
		Elapsed:   elapsed,
		OpsPerSec: float64(cfg.Events) / elapsed.Seconds(),
	}
	logger.Infof("bench: finished run %s in %s", runID, elapsed)
	return res, nil
}

// produce publishes cfg.Events random payloads and returns their sum.
// The first producer also publishes the remainder of an uneven split.
func produce(rb *disruptor.RingBuffer[sample], cfg Config) uint64 {
	share := cfg.Events / int64(cfg.Producers)
	sums := make([]uint64, cfg.Producers)

	var wg sync.WaitGroup
	for i := range cfg.Producers {
		n := share
		if i == 0 {
			n += cfg.Events % int64(cfg.Producers)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub := rb.NewPublisher()
			var sum uint64
			for n > 0 {
				batch := int(min(n, int64(cfg.Batch)))
				hi := pub.NextN(batch)
				for seq := hi - int64(batch) + 1; seq <= hi; seq++ {
					v := uint64(fastrand.Uint32n(payloadRange))
					pub.Get(seq).Value = v
					sum += v
				}
				pub.PublishBatch(hi, batch)
				n -= int64(batch)
			}
			sums[i] = sum
		}()
	}
	wg.Wait()

	var total uint64
	for _, s := range sums {
		total += s
	}
	return total
}

// consumers is one of the topologies in ModePipeline, ModeFanOut or
// ModeWorkers, wired to a ring.
type consumers struct {
	rb      *disruptor.RingBuffer[sample]
	group   *disruptor.ProcessorGroup
	pool    *disruptor.WorkerPool[sample]
	summers []*summer
	workers []*workSummer
}

func newConsumers(rb *disruptor.RingBuffer[sample], cfg Config, logger logging.Logger) (*consumers, error) {
	c := &consumers{rb: rb}
	opts := func(i int) []disruptor.ProcessorOption {
		return []disruptor.ProcessorOption{
			disruptor.WithName(fmt.Sprintf("%s-%d", cfg.Mode, i)),
			disruptor.WithLogger(logger),
		}
	}

	switch cfg.Mode {
	case ModePipeline, ModeFanOut:
		processors := make([]disruptor.EventProcessor, cfg.Consumers)
		var prev *disruptor.Sequence
		for i := range cfg.Consumers {
			barrier := rb.NewBarrier()
			if cfg.Mode == ModePipeline && prev != nil {
				barrier = rb.NewBarrier(prev)
			}
			s := &summer{}
			p := disruptor.NewBatchEventProcessor[sample](rb, barrier, s, opts(i)...)
			c.summers = append(c.summers, s)
			processors[i] = p
			prev = p.Sequence()
		}
		c.group = disruptor.NewProcessorGroup(processors...)
		if cfg.Mode == ModePipeline {
			rb.SetGatingSequences(prev)
		} else {
			rb.SetGatingSequences(c.group.Sequences()...)
		}
	case ModeWorkers:
		handlers := make([]disruptor.WorkHandler[sample], cfg.Consumers)
		for i := range handlers {
			w := &workSummer{}
			c.workers = append(c.workers, w)
			handlers[i] = w
		}
		c.pool = disruptor.NewWorkerPool(rb, rb.NewBarrier(), handlers,
			disruptor.WithName(cfg.Mode), disruptor.WithLogger(logger))
		rb.SetGatingSequences(c.pool.WorkerSequences()...)
	default:
		return nil, fmt.Errorf("invalid mode %q", cfg.Mode)
	}
	return c, nil
}

func (c *consumers) start(exec disruptor.Executor) error {
	if c.pool != nil {
		return c.pool.Start(exec)
	}
	return c.group.Start(exec)
}

// await waits until every consumer has handled last.
// A worker pool drains itself in stop.
func (c *consumers) await(last int64) {
	if c.pool != nil {
		return
	}
	backoff := iox.Backoff{}
	for _, seq := range c.group.Sequences() {
		for seq.Get() < last {
			backoff.Wait()
		}
		backoff.Reset()
	}
}

func (c *consumers) stop() error {
	if c.pool != nil {
		c.pool.DrainAndHalt()
		return c.pool.Wait()
	}
	c.group.Halt()
	return c.group.Wait()
}

func (c *consumers) verify(published uint64) error {
	if c.pool != nil {
		var total uint64
		for _, w := range c.workers {
			total += w.sum
		}
		if total != published {
			return fmt.Errorf("%w: workers handled %d, published %d", ErrChecksum, total, published)
		}
		return nil
	}
	for i, s := range c.summers {
		if s.sum != published {
			return fmt.Errorf("%w: consumer %d handled %d, published %d", ErrChecksum, i, s.sum, published)
		}
	}
	return nil
}
