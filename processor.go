// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"errors"
	"runtime"

	"code.hybscloud.com/atomix"
)

const (
	processorIdle int64 = iota
	processorRunning
)

// BatchEventProcessor delivers every event of a ring to one handler.
//
// It waits on its barrier for the next sequence, hands the handler every
// event up to the available sequence, then publishes its own progress in
// one store, which is what gating producers and downstream barriers see.
type BatchEventProcessor[T any] struct {
	sequence Sequence
	running  atomix.Int64
	data     DataProvider[T]
	barrier  *SequenceBarrier
	handler  EventHandler[T]
	opts     processorOptions
}

// NewBatchEventProcessor creates a processor reading data through barrier.
func NewBatchEventProcessor[T any](data DataProvider[T], barrier *SequenceBarrier, handler EventHandler[T], opts ...ProcessorOption) *BatchEventProcessor[T] {
	p := &BatchEventProcessor[T]{
		data:    data,
		barrier: barrier,
		handler: handler,
		opts:    loadProcessorOptions(opts...),
	}
	p.sequence.Set(InitialCursorValue)
	return p
}

// Sequence returns the processor's progress sequence.
func (p *BatchEventProcessor[T]) Sequence() *Sequence {
	return &p.sequence
}

// IsRunning reports whether Run is active.
func (p *BatchEventProcessor[T]) IsRunning() bool {
	return p.running.LoadAcquire() == processorRunning
}

// Halt stops the processor and wakes it if it is waiting.
func (p *BatchEventProcessor[T]) Halt() {
	p.running.StoreRelease(processorIdle)
	p.barrier.Alert()
}

// Run processes events until Halt, until the barrier's context is done, or
// until the exception handler returns an error.
//
// Panics if the processor is already running.
func (p *BatchEventProcessor[T]) Run() error {
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

	next := p.sequence.Get() + 1
	for {
		available, werr := p.barrier.WaitFor(next)
		if werr != nil {
			if stop, cause := shouldStop(werr, p.IsRunning()); stop {
				return cause
			}
			continue
		}

		for ; next <= available; next++ {
			event := p.data.Get(next)
			if herr := p.handler.OnEvent(event, next, next == available); herr != nil {
				if ferr := p.opts.exceptions.HandleEventException(herr, next, event); ferr != nil {
					p.sequence.Set(next)
					return ferr
				}
			}
		}
		p.sequence.Set(available)
	}
}

// shouldStop classifies a barrier error seen by a run-loop. An interrupted
// barrier always stops the loop and reports why; an alert stops it only
// once the processor has been halted.
func shouldStop(err error, running bool) (bool, error) {
	if errors.Is(err, ErrInterrupted) {
		return true, err
	}
	if IsAlert(err) {
		return !running, nil
	}
	return true, err
}

func pinProcessor(o processorOptions) func() {
	if o.cpu < 0 {
		return func() {}
	}
	runtime.LockOSThread()
	if err := bindCPU(o.cpu); err != nil {
		o.logger.Warnf("processor %s: bind to cpu %d: %v", o.name, o.cpu, err)
	}
	return runtime.UnlockOSThread
}

func notifyStart(handler any, o processorOptions) {
	o.logger.Debugf("processor %s: started", o.name)
	if la, ok := handler.(LifecycleAware); ok {
		la.OnStart()
	}
}

func notifyShutdown(handler any, o processorOptions) {
	if la, ok := handler.(LifecycleAware); ok {
		la.OnShutdown()
	}
	o.logger.Debugf("processor %s: stopped", o.name)
}
