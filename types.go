// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

// EventHandler processes published events in sequence order.
//
// endOfBatch is true for the last event currently available, a natural
// point to flush buffered work. A returned error goes to the processor's
// ExceptionHandler.
//
// Example:
//
//	h := disruptor.EventHandlerFunc[Trade](func(t *Trade, seq int64, end bool) error {
//	    journal.Append(t)
//	    if end {
//	        return journal.Flush()
//	    }
//	    return nil
//	})
type EventHandler[T any] interface {
	OnEvent(event *T, sequence int64, endOfBatch bool) error
}

// EventHandlerFunc adapts a function to an EventHandler.
type EventHandlerFunc[T any] func(event *T, sequence int64, endOfBatch bool) error

// OnEvent calls f.
func (f EventHandlerFunc[T]) OnEvent(event *T, sequence int64, endOfBatch bool) error {
	return f(event, sequence, endOfBatch)
}

// LifecycleAware handlers are told when their processor starts and stops.
// OnStart runs on the processor goroutine before the first event;
// OnShutdown after the last.
type LifecycleAware interface {
	OnStart()
	OnShutdown()
}

// DataProvider maps sequences to slots. RingBuffer implements it.
type DataProvider[T any] interface {
	Get(sequence int64) *T
}

// EventProcessor is a consumer run-loop.
//
// Processors are started on an Executor, usually through a ProcessorGroup
// or WorkerPool, and stopped with Halt.
type EventProcessor interface {
	// Run processes events until halted. It blocks, and returns nil after
	// Halt, or the error that stopped it.
	Run() error

	// Halt stops a running processor once its current event completes.
	Halt()

	// Sequence is the processor's progress, for use as a dependent or
	// gating sequence.
	Sequence() *Sequence

	// IsRunning reports whether Run is active.
	IsRunning() bool
}
