// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// WorkHandler processes events shared among a pool of workers.
// Each event goes to exactly one worker.
type WorkHandler[T any] interface {
	OnEvent(event *T) error
}

// WorkHandlerFunc adapts a function to a WorkHandler.
type WorkHandlerFunc[T any] func(event *T) error

// OnEvent calls f.
func (f WorkHandlerFunc[T]) OnEvent(event *T) error {
	return f(event)
}

// WorkProcessor is one worker of a WorkerPool.
//
// Workers claim sequences from a shared work sequence, so each published
// event is handled by the first worker to claim it. A worker's own
// sequence trails its claim by one: it tells producers that everything
// before its current claim is done.
type WorkProcessor[T any] struct {
	sequence     Sequence
	running      atomix.Int64
	data         DataProvider[T]
	barrier      *SequenceBarrier
	handler      WorkHandler[T]
	workSequence *Sequence
	opts         processorOptions
}

// NewWorkProcessor creates a worker claiming from workSequence.
func NewWorkProcessor[T any](data DataProvider[T], barrier *SequenceBarrier, handler WorkHandler[T], workSequence *Sequence, opts ...ProcessorOption) *WorkProcessor[T] {
	p := &WorkProcessor[T]{
		data:         data,
		barrier:      barrier,
		handler:      handler,
		workSequence: workSequence,
		opts:         loadProcessorOptions(opts...),
	}
	p.sequence.Set(InitialCursorValue)
	return p
}

// Sequence returns the worker's progress sequence.
func (p *WorkProcessor[T]) Sequence() *Sequence {
	return &p.sequence
}

// IsRunning reports whether Run is active.
func (p *WorkProcessor[T]) IsRunning() bool {
	return p.running.LoadAcquire() == processorRunning
}

// Halt stops the worker and wakes it if it is waiting.
func (p *WorkProcessor[T]) Halt() {
	p.running.StoreRelease(processorIdle)
	p.barrier.Alert()
}

// Run claims and processes events until Halt, until the barrier's context
// is done, or until the exception handler returns an error.
//
// Panics if the worker is already running.
func (p *WorkProcessor[T]) Run() error {
	if !p.running.CompareAndSwapAcqRel(processorIdle, processorRunning) {
		panic("disruptor: processor is already running")
	}
	defer p.running.StoreRelease(processorIdle)

	p.barrier.ClearAlert()
	if !p.IsRunning() {
		// halted before the alert was cleared
		return nil
	}
	unpin := pinProcessor(p.opts)
	defer unpin()
	notifyStart(p.handler, p.opts)
	defer notifyShutdown(p.handler, p.opts)

	processed := true
	next := p.sequence.Get()
	for {
		if processed {
			processed = false
			next = p.workSequence.IncrementAndGet()
			p.sequence.Set(next - 1)
		}

		if _, err := p.barrier.WaitFor(next); err != nil {
			if stop, cause := shouldStop(err, p.IsRunning()); stop {
				return cause
			}
			continue
		}

		event := p.data.Get(next)
		if herr := p.handler.OnEvent(event); herr != nil {
			if ferr := p.opts.exceptions.HandleEventException(herr, next, event); ferr != nil {
				p.sequence.Set(next)
				return ferr
			}
		}
		processed = true
	}
}

// WorkerPool shares the events of a ring among workers, each event handled
// by exactly one of them.
//
// Register WorkerSequences as the ring's gating sequences (or as the
// dependents of a downstream barrier) before starting.
type WorkerPool[T any] struct {
	ring         *RingBuffer[T]
	workSequence Sequence
	workers      []*WorkProcessor[T]
	group        *ProcessorGroup
	started      atomix.Int64
}

// NewWorkerPool creates a worker per handler, all waiting on barrier.
func NewWorkerPool[T any](ring *RingBuffer[T], barrier *SequenceBarrier, handlers []WorkHandler[T], opts ...ProcessorOption) *WorkerPool[T] {
	wp := &WorkerPool[T]{ring: ring}
	wp.workSequence.Set(InitialCursorValue)
	procs := make([]EventProcessor, 0, len(handlers))
	for _, h := range handlers {
		w := NewWorkProcessor[T](ring, barrier, h, &wp.workSequence, opts...)
		wp.workers = append(wp.workers, w)
		procs = append(procs, w)
	}
	wp.group = NewProcessorGroup(procs...)
	return wp
}

// WorkerSequences returns every worker's sequence plus the shared work
// sequence. Gating on all of them keeps producers behind the slowest
// worker, including while no worker holds a claim.
func (wp *WorkerPool[T]) WorkerSequences() []*Sequence {
	seqs := make([]*Sequence, 0, len(wp.workers)+1)
	for _, w := range wp.workers {
		seqs = append(seqs, w.Sequence())
	}
	return append(seqs, &wp.workSequence)
}

// Start positions every worker at the ring's cursor and runs them on exec.
//
// Panics if the pool is already started.
func (wp *WorkerPool[T]) Start(exec Executor) error {
	if !wp.started.CompareAndSwapAcqRel(0, 1) {
		panic("disruptor: worker pool already started")
	}
	cursor := wp.ring.Cursor()
	wp.workSequence.Set(cursor)
	for _, w := range wp.workers {
		w.sequence.Set(cursor)
	}
	return wp.group.Start(exec)
}

// DrainAndHalt waits until every published event has been processed, then
// halts the workers. Producers must have stopped publishing.
func (wp *WorkerPool[T]) DrainAndHalt() {
	seqs := wp.WorkerSequences()
	backoff := iox.Backoff{}
	for wp.ring.Cursor() > MinimumSequence(seqs) {
		backoff.Wait()
	}
	wp.Halt()
}

// Halt stops every worker without draining.
func (wp *WorkerPool[T]) Halt() {
	wp.group.Halt()
	wp.started.StoreRelease(0)
}

// Wait blocks until every worker has returned and reports their errors.
func (wp *WorkerPool[T]) Wait() error {
	return wp.group.Wait()
}
