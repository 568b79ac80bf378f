// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import "code.hybscloud.com/atomix"

// SingleProducerClaimStrategy is a ClaimStrategy for exactly one producer.
//
// Claims are plain increments of a padded cursor: there is no contention to
// arbitrate. The producer keeps its own cached view of the slowest
// dependent, so a claim with headroom reads no consumer cache line at all.
//
// Only one goroutine may call the mutating methods. Sequence may be read
// from any goroutine.
type SingleProducerClaimStrategy struct {
	_          pad
	claim      atomix.Int64 // Written by the producer only
	_          pad
	minGating  gatingCache
	bufferSize int64
}

// NewSingleProducerClaimStrategy creates a single producer claim strategy
// over bufferSize slots.
func NewSingleProducerClaimStrategy(bufferSize int) *SingleProducerClaimStrategy {
	if bufferSize < 1 {
		panic("disruptor: buffer size must be >= 1")
	}
	s := &SingleProducerClaimStrategy{bufferSize: int64(bufferSize)}
	s.claim.StoreRelaxed(InitialCursorValue)
	s.minGating.value = InitialCursorValue
	return s
}

// BufferSize returns the number of slots.
func (s *SingleProducerClaimStrategy) BufferSize() int {
	return int(s.bufferSize)
}

// Sequence returns the highest claimed sequence.
func (s *SingleProducerClaimStrategy) Sequence() int64 {
	return s.claim.LoadAcquire()
}

// HasAvailableCapacity reports whether availableCapacity more slots can be claimed.
func (s *SingleProducerClaimStrategy) HasAvailableCapacity(availableCapacity int, dependents []*Sequence) bool {
	return hasCapacityAfter(s.claim.LoadRelaxed(), availableCapacity, s.bufferSize, dependents, &s.minGating)
}

// IncrementAndGet claims the next sequence, waiting for capacity.
func (s *SingleProducerClaimStrategy) IncrementAndGet(dependents []*Sequence) int64 {
	return s.IncrementAndGetN(1, dependents)
}

// IncrementAndGetN claims delta sequences, waiting for capacity.
func (s *SingleProducerClaimStrategy) IncrementAndGetN(delta int, dependents []*Sequence) int64 {
	next := s.claim.LoadRelaxed() + int64(delta)
	s.claim.StoreRelease(next)
	waitForFreeSlotAt(next, s.bufferSize, dependents, &s.minGating)
	return next
}

// CheckAndIncrement claims delta sequences only if availableCapacity slots are free.
func (s *SingleProducerClaimStrategy) CheckAndIncrement(availableCapacity, delta int, dependents []*Sequence) (int64, error) {
	if !s.HasAvailableCapacity(availableCapacity, dependents) {
		return 0, ErrInsufficientCapacity
	}
	return s.IncrementAndGetN(delta, dependents), nil
}

// SetSequence forces the claim cursor to sequence, waiting for capacity.
func (s *SingleProducerClaimStrategy) SetSequence(sequence int64, dependents []*Sequence) {
	s.claim.StoreRelease(sequence)
	waitForFreeSlotAt(sequence, s.bufferSize, dependents, &s.minGating)
}

// SerialisePublishing stores sequence into cursor.
// With one producer, publication is already in claim order.
func (s *SingleProducerClaimStrategy) SerialisePublishing(sequence int64, cursor *Sequence, batchSize int) {
	cursor.Set(sequence)
}
