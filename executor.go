// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/panjf2000/ants/v2"
)

// Executor runs processor loops. Each submitted task blocks for the life
// of its processor, so an executor backed by a bounded pool needs one
// worker per processor.
type Executor interface {
	Submit(task func()) error
}

// GoExecutor runs every task on a new goroutine.
type GoExecutor struct{}

// Submit starts task on a new goroutine. It never fails.
func (GoExecutor) Submit(task func()) error {
	go task()
	return nil
}

const (
	// DefaultPoolExpiry is how long an idle pool worker lives.
	DefaultPoolExpiry = 10 * time.Second
)

// PoolExecutor runs tasks on an ants goroutine pool.
type PoolExecutor struct {
	pool *ants.Pool
}

// NewPoolExecutor creates a non-blocking pool of size workers.
// Submitting to a full pool fails with ants.ErrPoolOverload.
func NewPoolExecutor(size int) (*PoolExecutor, error) {
	options := ants.Options{ExpiryDuration: DefaultPoolExpiry, Nonblocking: true}
	pool, err := ants.NewPool(size, ants.WithOptions(options))
	if err != nil {
		return nil, err
	}
	return &PoolExecutor{pool: pool}, nil
}

// Submit runs task on a pool worker.
func (e *PoolExecutor) Submit(task func()) error {
	return e.pool.Submit(task)
}

// Running returns the number of busy pool workers.
func (e *PoolExecutor) Running() int {
	return e.pool.Running()
}

// Release closes the pool. Tasks already running are not interrupted.
func (e *PoolExecutor) Release() {
	e.pool.Release()
}

// ProcessorGroup starts, halts and waits for a set of processors.
type ProcessorGroup struct {
	processors []EventProcessor
	done       []atomix.Bool
	wg         sync.WaitGroup
	mu         sync.Mutex
	errs       []error
}

// NewProcessorGroup groups processors.
func NewProcessorGroup(processors ...EventProcessor) *ProcessorGroup {
	return &ProcessorGroup{
		processors: processors,
		done:       make([]atomix.Bool, len(processors)),
	}
}

// Processors returns the grouped processors.
func (g *ProcessorGroup) Processors() []EventProcessor {
	return g.processors
}

// Sequences returns the processors' sequences, for gating a ring or as the
// dependents of a downstream barrier.
func (g *ProcessorGroup) Sequences() []*Sequence {
	seqs := make([]*Sequence, len(g.processors))
	for i, p := range g.processors {
		seqs[i] = p.Sequence()
	}
	return seqs
}

// Start submits every processor to exec and returns once each one is
// running or has already returned, so a following Halt is not lost.
// If a submission fails, the processors already started are halted and
// the error is returned.
func (g *ProcessorGroup) Start(exec Executor) error {
	for i, p := range g.processors {
		g.done[i].Store(false)
		g.wg.Add(1)
		err := exec.Submit(func() {
			defer g.wg.Done()
			defer g.done[i].StoreRelease(true)
			if err := p.Run(); err != nil {
				g.mu.Lock()
				g.errs = append(g.errs, err)
				g.mu.Unlock()
			}
		})
		if err != nil {
			g.wg.Done()
			g.awaitRunning(i)
			for _, started := range g.processors[:i] {
				started.Halt()
			}
			return fmt.Errorf("disruptor: start processor %d: %w", i, err)
		}
	}
	g.awaitRunning(len(g.processors))
	return nil
}

// awaitRunning waits until each of the first n processors is running or
// has returned.
func (g *ProcessorGroup) awaitRunning(n int) {
	backoff := iox.Backoff{}
	for i, p := range g.processors[:n] {
		for !p.IsRunning() && !g.done[i].LoadAcquire() {
			backoff.Wait()
		}
		backoff.Reset()
	}
}

// Halt halts every processor.
func (g *ProcessorGroup) Halt() {
	for _, p := range g.processors {
		p.Halt()
	}
}

// Wait blocks until every started processor has returned, then reports
// the errors they returned.
func (g *ProcessorGroup) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	err := errors.Join(g.errs...)
	g.errs = nil
	return err
}
