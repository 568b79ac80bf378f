// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

// Options configures ring buffer creation and strategy selection.
type Options struct {
	// Producer constraint (determines claim strategy)
	singleProducer bool

	// Multi-producer publication mode
	lowContention bool
	pendingSize   int

	wait WaitStrategy

	// Buffer size (rounds up to next power of 2)
	size int
}

// Builder creates ring buffers with fluent configuration.
//
// The builder selects the claim strategy from the producer constraint and
// contention hint, and the wait strategy from the consumer latency
// preference. Defaults: multiple producers with a pending-publication ring
// and a BlockingWaitStrategy.
//
// Example:
//
//	// One publishing goroutine, lowest latency
//	rb := disruptor.Build(disruptor.New(1024).SingleProducer().BusySpin(), newEvent)
//
//	// Many publishers, consumers park between bursts
//	rb := disruptor.Build(disruptor.New(4096).Blocking(), newEvent)
//
//	// Few publishers, short publish windows
//	rb := disruptor.Build(disruptor.New(4096).LowContention().Yielding(), newEvent)
type Builder struct {
	opts Options
}

// New creates a ring buffer builder with the given size.
//
// Size rounds up to the next power of 2.
// For example, size=4 results in 4 slots, size=1000 in 1024 slots.
//
// Panics if size < 1.
func New(size int) *Builder {
	if size < 1 {
		panic("disruptor: size must be >= 1")
	}
	return &Builder{opts: Options{size: roundToPow2(size)}}
}

// SingleProducer declares that only one goroutine will claim and publish.
// Selects SingleProducerClaimStrategy.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// LowContention selects MultiProducerLowContentionClaimStrategy: publishers
// wait for their predecessors instead of recording pending publications.
// Ignored with SingleProducer.
func (b *Builder) LowContention() *Builder {
	b.opts.lowContention = true
	return b
}

// PendingBuffer sets the size of the pending-publication ring of
// MultiProducerClaimStrategy. Rounds up to the next power of 2.
// Defaults to DefaultPendingBufferSize.
func (b *Builder) PendingBuffer(n int) *Builder {
	if n < 1 {
		panic("disruptor: pending buffer size must be >= 1")
	}
	b.opts.pendingSize = roundToPow2(n)
	return b
}

// Blocking selects BlockingWaitStrategy (the default).
func (b *Builder) Blocking() *Builder {
	return b.WaitStrategy(NewBlockingWaitStrategy())
}

// Sleeping selects SleepingWaitStrategy.
func (b *Builder) Sleeping() *Builder {
	return b.WaitStrategy(NewSleepingWaitStrategy())
}

// Yielding selects YieldingWaitStrategy.
func (b *Builder) Yielding() *Builder {
	return b.WaitStrategy(NewYieldingWaitStrategy())
}

// BusySpin selects BusySpinWaitStrategy.
func (b *Builder) BusySpin() *Builder {
	return b.WaitStrategy(NewBusySpinWaitStrategy())
}

// WaitStrategy sets the wait strategy, for example one returned by
// ParseWaitStrategy.
func (b *Builder) WaitStrategy(w WaitStrategy) *Builder {
	b.opts.wait = w
	return b
}

// Size returns the rounded buffer size.
func (b *Builder) Size() int {
	return b.opts.size
}

// ClaimStrategy creates the claim strategy the builder is configured for.
//
// Strategy selection:
//
//	SingleProducer  → SingleProducerClaimStrategy
//	LowContention   → MultiProducerLowContentionClaimStrategy
//	Default         → MultiProducerClaimStrategy (pending ring of PendingBuffer size)
func (b *Builder) ClaimStrategy() ClaimStrategy {
	switch {
	case b.opts.singleProducer:
		return NewSingleProducerClaimStrategy(b.opts.size)
	case b.opts.lowContention:
		return NewMultiProducerLowContentionClaimStrategy(b.opts.size)
	case b.opts.pendingSize > 0:
		return NewMultiProducerClaimStrategyPending(b.opts.size, b.opts.pendingSize)
	default:
		return NewMultiProducerClaimStrategy(b.opts.size)
	}
}

// Build creates a RingBuffer[T] whose slots are filled by factory.
// A nil factory leaves slots at their zero value.
func Build[T any](b *Builder, factory func() T) *RingBuffer[T] {
	wait := b.opts.wait
	if wait == nil {
		wait = NewBlockingWaitStrategy()
	}
	return NewRingBuffer[T](factory, b.ClaimStrategy(), wait)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
