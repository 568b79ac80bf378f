// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// DefaultPendingBufferSize is the default number of out-of-order
// publications a MultiProducerClaimStrategy can hold.
const DefaultPendingBufferSize = 1024

// multiProducerClaim is the claiming half shared by the multi-producer
// strategies. Slots are granted by CAS on a shared Sequence, so no two
// producers ever receive the same sequence.
//
// Each caller needs its own cached minimum of the dependents: a shared one
// would be a cache line every producer writes. Direct calls borrow a cache
// from a sync.Pool, whose per-P shards keep a cache close to the goroutine
// that used it last. A Producer handle owns its cache outright.
type multiProducerClaim struct {
	claim      Sequence
	bufferSize int64
	caches     sync.Pool
}

func (m *multiProducerClaim) init(bufferSize int) {
	if bufferSize < 1 {
		panic("disruptor: buffer size must be >= 1")
	}
	m.bufferSize = int64(bufferSize)
	m.claim.Set(InitialCursorValue)
	m.caches.New = func() any { return newGatingCache() }
}

func (m *multiProducerClaim) acquireCache() *gatingCache {
	return m.caches.Get().(*gatingCache)
}

func (m *multiProducerClaim) releaseCache(c *gatingCache) {
	m.caches.Put(c)
}

// BufferSize returns the number of slots.
func (m *multiProducerClaim) BufferSize() int {
	return int(m.bufferSize)
}

// Sequence returns the highest claimed sequence.
func (m *multiProducerClaim) Sequence() int64 {
	return m.claim.Get()
}

// HasAvailableCapacity reports whether availableCapacity more slots can be claimed.
func (m *multiProducerClaim) HasAvailableCapacity(availableCapacity int, dependents []*Sequence) bool {
	c := m.acquireCache()
	ok := hasCapacityAfter(m.claim.Get(), availableCapacity, m.bufferSize, dependents, c)
	m.releaseCache(c)
	return ok
}

// IncrementAndGet claims the next sequence, waiting for capacity.
func (m *multiProducerClaim) IncrementAndGet(dependents []*Sequence) int64 {
	return m.IncrementAndGetN(1, dependents)
}

// IncrementAndGetN claims delta sequences, waiting for capacity.
func (m *multiProducerClaim) IncrementAndGetN(delta int, dependents []*Sequence) int64 {
	c := m.acquireCache()
	next := m.incrementAndGet(delta, dependents, c)
	m.releaseCache(c)
	return next
}

// CheckAndIncrement claims delta sequences only if availableCapacity slots are free.
func (m *multiProducerClaim) CheckAndIncrement(availableCapacity, delta int, dependents []*Sequence) (int64, error) {
	c := m.acquireCache()
	next, err := m.checkAndIncrement(availableCapacity, delta, dependents, c)
	m.releaseCache(c)
	return next, err
}

// SetSequence forces the claim cursor to sequence, waiting for capacity.
func (m *multiProducerClaim) SetSequence(sequence int64, dependents []*Sequence) {
	c := m.acquireCache()
	m.setSequence(sequence, dependents, c)
	m.releaseCache(c)
}

func (m *multiProducerClaim) incrementAndGet(delta int, dependents []*Sequence, c *gatingCache) int64 {
	next := m.claim.AddAndGet(int64(delta))
	waitForFreeSlotAt(next, m.bufferSize, dependents, c)
	return next
}

func (m *multiProducerClaim) checkAndIncrement(availableCapacity, delta int, dependents []*Sequence, c *gatingCache) (int64, error) {
	sw := spin.Wait{}
	for {
		current := m.claim.Get()
		if !hasCapacityAfter(current, availableCapacity, m.bufferSize, dependents, c) {
			return 0, ErrInsufficientCapacity
		}
		next := current + int64(delta)
		if m.claim.CompareAndSet(current, next) {
			return next, nil
		}
		sw.Once()
	}
}

func (m *multiProducerClaim) setSequence(sequence int64, dependents []*Sequence, c *gatingCache) {
	m.claim.Set(sequence)
	waitForFreeSlotAt(sequence, m.bufferSize, dependents, c)
}

// MultiProducerClaimStrategy is a ClaimStrategy for any number of producers.
//
// Publication may complete out of claim order. A producer whose predecessor
// has not yet published records its sequence in a pending-publication ring
// and returns; whichever producer advances the cursor sweeps forward over
// every contiguous pending entry. The visible cursor therefore never skips
// a gap, and fast producers never wait on slow ones unless they run a whole
// pending ring ahead.
type MultiProducerClaimStrategy struct {
	multiProducerClaim
	_           pad
	pending     []atomix.Int64
	pendingSize int64
	pendingMask int64
}

// NewMultiProducerClaimStrategy creates a multi-producer claim strategy
// over bufferSize slots with DefaultPendingBufferSize pending entries.
func NewMultiProducerClaimStrategy(bufferSize int) *MultiProducerClaimStrategy {
	return NewMultiProducerClaimStrategyPending(bufferSize, DefaultPendingBufferSize)
}

// NewMultiProducerClaimStrategyPending creates a multi-producer claim
// strategy with an explicit pending-publication ring size.
// pendingBufferSize rounds up to the next power of 2.
func NewMultiProducerClaimStrategyPending(bufferSize, pendingBufferSize int) *MultiProducerClaimStrategy {
	if pendingBufferSize < 1 {
		panic("disruptor: pending buffer size must be >= 1")
	}
	n := roundToPow2(pendingBufferSize)
	s := &MultiProducerClaimStrategy{
		pending:     make([]atomix.Int64, n),
		pendingSize: int64(n),
		pendingMask: int64(n - 1),
	}
	s.init(bufferSize)
	for i := range s.pending {
		s.pending[i].StoreRelaxed(InitialCursorValue)
	}
	return s
}

// NewProducer returns a claim handle with its own cached gating minimum.
// A handle must be used by one goroutine at a time.
func (s *MultiProducerClaimStrategy) NewProducer() *Producer {
	return &Producer{strategy: s, claim: &s.multiProducerClaim, cache: gatingCache{value: InitialCursorValue}}
}

// SerialisePublishing publishes the batch ending at sequence and advances
// cursor over every contiguous published sequence.
//
// A batch larger than the pending ring cannot be recorded in it: the
// publisher waits for its predecessors instead, then moves the cursor over
// the whole batch itself.
func (s *MultiProducerClaimStrategy) SerialisePublishing(sequence int64, cursor *Sequence, batchSize int) {
	expected := sequence - int64(batchSize)
	sw := spin.Wait{}
	if int64(batchSize) > s.pendingSize {
		for cursor.Get() != expected {
			sw.Once()
		}
		// expected+1 is ours and unpublished, so no one else moves the cursor
		s.advance(cursor, expected, sequence)
		return
	}

	// Every mark must land within pendingSize of the cursor, or it would
	// overwrite a publication not yet swept.
	for sequence-cursor.Get() > s.pendingSize {
		sw.Once()
	}

	for p := expected + 1; p < sequence; p++ {
		s.pending[p&s.pendingMask].StoreRelease(p)
	}
	// The final mark and the cursor read below pair with the cursor CAS and
	// pending read of whichever producer is sweeping: both sides need
	// sequentially consistent order so one of them sees the other.
	s.pending[sequence&s.pendingMask].Store(sequence)

	current := cursor.value.Load()
	if current >= sequence {
		return
	}
	expected = max(expected, current)
	s.advance(cursor, expected, expected+1)
}

// advance moves cursor from expected to next, then on over every
// contiguous pending publication. It stops as soon as a CAS fails: the
// cursor has moved, and whoever moved it continues the sweep.
func (s *MultiProducerClaimStrategy) advance(cursor *Sequence, expected, next int64) {
	for cursor.CompareAndSet(expected, next) {
		expected = next
		next++
		if s.pending[next&s.pendingMask].Load() != next {
			return
		}
	}
}

// MultiProducerLowContentionClaimStrategy is a multi-producer ClaimStrategy
// that publishes by waiting for its predecessor.
//
// Each publisher spins until the cursor reaches the sequence just before
// its batch, then stores. Cheapest when producers rarely overlap.
type MultiProducerLowContentionClaimStrategy struct {
	multiProducerClaim
}

// NewMultiProducerLowContentionClaimStrategy creates a low contention
// multi-producer claim strategy over bufferSize slots.
func NewMultiProducerLowContentionClaimStrategy(bufferSize int) *MultiProducerLowContentionClaimStrategy {
	s := &MultiProducerLowContentionClaimStrategy{}
	s.init(bufferSize)
	return s
}

// NewProducer returns a claim handle with its own cached gating minimum.
// A handle must be used by one goroutine at a time.
func (s *MultiProducerLowContentionClaimStrategy) NewProducer() *Producer {
	return &Producer{strategy: s, claim: &s.multiProducerClaim, cache: gatingCache{value: InitialCursorValue}}
}

// SerialisePublishing waits for the cursor to reach the sequence before
// this batch, then stores sequence.
func (s *MultiProducerLowContentionClaimStrategy) SerialisePublishing(sequence int64, cursor *Sequence, batchSize int) {
	expected := sequence - int64(batchSize)
	sw := spin.Wait{}
	for cursor.Get() != expected {
		sw.Once()
	}
	cursor.Set(sequence)
}

// Producer is a per-goroutine view of a multi-producer claim strategy.
//
// Claims go to the shared strategy; the cached gating minimum stays with
// the handle, so a producer goroutine never touches another's cache.
// Producer implements ClaimStrategy.
type Producer struct {
	strategy ClaimStrategy
	claim    *multiProducerClaim
	cache    gatingCache
}

// BufferSize returns the number of slots.
func (p *Producer) BufferSize() int {
	return p.claim.BufferSize()
}

// Sequence returns the highest claimed sequence across all producers.
func (p *Producer) Sequence() int64 {
	return p.claim.Sequence()
}

// HasAvailableCapacity reports whether availableCapacity more slots can be claimed.
func (p *Producer) HasAvailableCapacity(availableCapacity int, dependents []*Sequence) bool {
	return hasCapacityAfter(p.claim.claim.Get(), availableCapacity, p.claim.bufferSize, dependents, &p.cache)
}

// IncrementAndGet claims the next sequence, waiting for capacity.
func (p *Producer) IncrementAndGet(dependents []*Sequence) int64 {
	return p.claim.incrementAndGet(1, dependents, &p.cache)
}

// IncrementAndGetN claims delta sequences, waiting for capacity.
func (p *Producer) IncrementAndGetN(delta int, dependents []*Sequence) int64 {
	return p.claim.incrementAndGet(delta, dependents, &p.cache)
}

// CheckAndIncrement claims delta sequences only if availableCapacity slots are free.
func (p *Producer) CheckAndIncrement(availableCapacity, delta int, dependents []*Sequence) (int64, error) {
	return p.claim.checkAndIncrement(availableCapacity, delta, dependents, &p.cache)
}

// SetSequence forces the shared claim cursor to sequence, waiting for capacity.
func (p *Producer) SetSequence(sequence int64, dependents []*Sequence) {
	p.claim.setSequence(sequence, dependents, &p.cache)
}

// SerialisePublishing delegates to the owning strategy.
func (p *Producer) SerialisePublishing(sequence int64, cursor *Sequence, batchSize int) {
	p.strategy.SerialisePublishing(sequence, cursor, batchSize)
}
