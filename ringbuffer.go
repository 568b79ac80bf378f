// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import "code.hybscloud.com/atomix"

// RingBuffer is a fixed-size array of preallocated slots coordinated by
// sequences.
//
// A producer claims a sequence, writes the slot for it, and publishes:
//
//	seq := rb.Next()
//	ev := rb.Get(seq)
//	ev.Value = 42
//	rb.Publish(seq)
//
// Consumers never take a lock: they wait on a SequenceBarrier for the
// publish cursor, read slots up to it, and advance their own Sequence. The
// ring is told about the terminal consumers' sequences through
// SetGatingSequences, and claims never wrap past the slowest of them.
//
// Slot storage is shared but unguarded. Correctness relies on the sequence
// protocol: a consumer reads only published slots, and a producer writes
// only slots every gating consumer has moved past.
type RingBuffer[T any] struct {
	cursor Sequence
	claim  ClaimStrategy
	wait   WaitStrategy
	gating atomix.Pointer[[]*Sequence]
	slots  []T
	mask   int64
}

// NewRingBuffer creates a ring buffer sized by claim.BufferSize(), filling
// every slot with factory().
//
// Panics if the buffer size is not a power of 2.
func NewRingBuffer[T any](factory func() T, claim ClaimStrategy, wait WaitStrategy) *RingBuffer[T] {
	n := claim.BufferSize()
	if n < 1 || n&(n-1) != 0 {
		panic("disruptor: buffer size must be a power of 2")
	}

	r := &RingBuffer[T]{
		claim: claim,
		wait:  wait,
		slots: make([]T, n),
		mask:  int64(n - 1),
	}
	r.cursor.Set(InitialCursorValue)
	if factory != nil {
		for i := range r.slots {
			r.slots[i] = factory()
		}
	}
	return r
}

// SetGatingSequences replaces the sequences producers must not overtake.
// Call before the first claim with the sequences of the terminal consumers.
func (r *RingBuffer[T]) SetGatingSequences(seqs ...*Sequence) {
	s := append([]*Sequence(nil), seqs...)
	r.gating.StoreRelease(&s)
}

// AddGatingSequences appends to the gating set, for example when a
// pipeline stage is added behind the current terminal consumers.
func (r *RingBuffer[T]) AddGatingSequences(seqs ...*Sequence) {
	for {
		old := r.gating.LoadAcquire()
		var next []*Sequence
		if old != nil {
			next = append(next, *old...)
		}
		next = append(next, seqs...)
		if r.gating.CompareAndSwapAcqRel(old, &next) {
			return
		}
	}
}

// GatingSequences returns the current gating set.
func (r *RingBuffer[T]) GatingSequences() []*Sequence {
	if p := r.gating.LoadAcquire(); p != nil {
		return *p
	}
	return nil
}

// NewBarrier creates a barrier over the publish cursor and dependents.
// Without dependents the barrier tracks the cursor alone.
func (r *RingBuffer[T]) NewBarrier(dependents ...*Sequence) *SequenceBarrier {
	return NewSequenceBarrier(r.wait, &r.cursor, dependents...)
}

// NewPublisher returns a publishing handle for one producer goroutine.
//
// With a multi-producer claim strategy the handle carries its own cached
// gating minimum. With any other strategy it claims through the ring.
func (r *RingBuffer[T]) NewPublisher() *Publisher[T] {
	claim := r.claim
	if np, ok := claim.(interface{ NewProducer() *Producer }); ok {
		claim = np.NewProducer()
	}
	return &Publisher[T]{ring: r, claim: claim}
}

// Get returns the slot for sequence.
func (r *RingBuffer[T]) Get(sequence int64) *T {
	return &r.slots[sequence&r.mask]
}

// Next claims the next sequence, waiting for capacity.
func (r *RingBuffer[T]) Next() int64 {
	return r.claim.IncrementAndGet(r.GatingSequences())
}

// NextN claims n sequences and returns the highest, waiting for capacity.
// The batch is [hi-n+1, hi].
func (r *RingBuffer[T]) NextN(n int) int64 {
	return r.claim.IncrementAndGetN(n, r.GatingSequences())
}

// TryNext claims the next sequence if a slot is free.
// Returns ErrInsufficientCapacity otherwise.
func (r *RingBuffer[T]) TryNext() (int64, error) {
	return r.TryNextN(1)
}

// TryNextN claims n sequences if n slots are free.
// Returns ErrInsufficientCapacity otherwise.
func (r *RingBuffer[T]) TryNextN(n int) (int64, error) {
	return r.claim.CheckAndIncrement(n, n, r.GatingSequences())
}

// Publish makes sequence visible to consumers.
func (r *RingBuffer[T]) Publish(sequence int64) {
	r.PublishBatch(sequence, 1)
}

// PublishBatch makes the n sequences ending at hi visible to consumers.
func (r *RingBuffer[T]) PublishBatch(hi int64, n int) {
	r.claim.SerialisePublishing(hi, &r.cursor, n)
	r.wait.SignalAllWhenBlocking()
}

// ClaimAndGetPreallocated forces the claim cursor to sequence and returns
// its slot. Used with ForcePublish to replay from a known position.
func (r *RingBuffer[T]) ClaimAndGetPreallocated(sequence int64) *T {
	r.claim.SetSequence(sequence, r.GatingSequences())
	return r.Get(sequence)
}

// ForcePublish sets the publish cursor to sequence without serialisation.
// Only safe with a single producer.
func (r *RingBuffer[T]) ForcePublish(sequence int64) {
	r.cursor.Set(sequence)
	r.wait.SignalAllWhenBlocking()
}

// Cursor returns the highest published sequence.
func (r *RingBuffer[T]) Cursor() int64 {
	return r.cursor.Get()
}

// CursorSequence returns the publish cursor itself, for use as a dependent.
func (r *RingBuffer[T]) CursorSequence() *Sequence {
	return &r.cursor
}

// BufferSize returns the number of slots.
func (r *RingBuffer[T]) BufferSize() int {
	return len(r.slots)
}

// HasAvailableCapacity reports whether n slots can be claimed without waiting.
func (r *RingBuffer[T]) HasAvailableCapacity(n int) bool {
	return r.claim.HasAvailableCapacity(n, r.GatingSequences())
}

// RemainingCapacity returns the number of slots not holding unconsumed
// published data. It is a snapshot and may be stale on return.
func (r *RingBuffer[T]) RemainingCapacity() int64 {
	produced := r.cursor.Get()
	consumed := minimumSequenceOr(r.GatingSequences(), produced)
	return int64(len(r.slots)) - (produced - consumed)
}

// Publisher claims and publishes on a RingBuffer for one producer goroutine.
type Publisher[T any] struct {
	ring  *RingBuffer[T]
	claim ClaimStrategy
}

// Next claims the next sequence, waiting for capacity.
func (p *Publisher[T]) Next() int64 {
	return p.claim.IncrementAndGet(p.ring.GatingSequences())
}

// NextN claims n sequences and returns the highest, waiting for capacity.
func (p *Publisher[T]) NextN(n int) int64 {
	return p.claim.IncrementAndGetN(n, p.ring.GatingSequences())
}

// TryNext claims the next sequence if a slot is free.
func (p *Publisher[T]) TryNext() (int64, error) {
	return p.TryNextN(1)
}

// TryNextN claims n sequences if n slots are free.
func (p *Publisher[T]) TryNextN(n int) (int64, error) {
	return p.claim.CheckAndIncrement(n, n, p.ring.GatingSequences())
}

// Get returns the slot for sequence.
func (p *Publisher[T]) Get(sequence int64) *T {
	return p.ring.Get(sequence)
}

// Publish makes sequence visible to consumers.
func (p *Publisher[T]) Publish(sequence int64) {
	p.PublishBatch(sequence, 1)
}

// PublishBatch makes the n sequences ending at hi visible to consumers.
func (p *Publisher[T]) PublishBatch(hi int64, n int) {
	p.claim.SerialisePublishing(hi, &p.ring.cursor, n)
	p.ring.wait.SignalAllWhenBlocking()
}
