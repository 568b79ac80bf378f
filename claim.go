// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import "time"

// ClaimStrategy hands out slot sequences to producers.
//
// A claim never runs further ahead of the slowest dependent (gating)
// sequence than the buffer size, so producers cannot overwrite a slot that
// a consumer has not finished with.
//
// Thread safety depends on the implementation:
//   - SingleProducerClaimStrategy: one producer goroutine only
//   - MultiProducerClaimStrategy: any number of producer goroutines
type ClaimStrategy interface {
	// BufferSize returns the number of slots being claimed over.
	BufferSize() int

	// Sequence returns the highest claimed (not necessarily published) sequence.
	Sequence() int64

	// HasAvailableCapacity reports whether availableCapacity more slots can
	// be claimed without overtaking the slowest dependent by more than the
	// buffer size.
	HasAvailableCapacity(availableCapacity int, dependents []*Sequence) bool

	// IncrementAndGet claims the next sequence, waiting for capacity.
	IncrementAndGet(dependents []*Sequence) int64

	// IncrementAndGetN claims delta sequences and returns the highest,
	// waiting for capacity.
	IncrementAndGetN(delta int, dependents []*Sequence) int64

	// CheckAndIncrement claims delta sequences if availableCapacity slots
	// are free, returning the highest claimed sequence. Returns
	// ErrInsufficientCapacity without claiming anything otherwise.
	CheckAndIncrement(availableCapacity, delta int, dependents []*Sequence) (int64, error)

	// SetSequence forces the claim cursor to sequence, waiting for capacity.
	SetSequence(sequence int64, dependents []*Sequence)

	// SerialisePublishing makes sequence visible through cursor.
	// batchSize is the number of sequences published in this call.
	SerialisePublishing(sequence int64, cursor *Sequence, batchSize int)
}

// parkDuration is the requested sleep between capacity rescans. The
// scheduler rounds it up to its shortest sleep, which is the intent.
const parkDuration = time.Nanosecond

// gatingCache is a caller's last known minimum of the dependent sequences.
//
// It is a hint: when the wrap point is beyond it, the dependents are
// rescanned. A stale value only costs an extra scan. An empty dependent set
// gates nothing and is never cached, so gating sequences registered later
// still take effect.
type gatingCache struct {
	_     pad
	value int64
	_     padShort
}

func newGatingCache() *gatingCache {
	return &gatingCache{value: InitialCursorValue}
}

// waitForFreeSlotAt blocks until the slot for sequence has been released
// by every dependent, refreshing cache once it has. Rescans follow the
// sleeping schedule: spin, then yield so consumers sharing the processor
// can run, then sleep.
func waitForFreeSlotAt(sequence int64, bufferSize int64, dependents []*Sequence, cache *gatingCache) {
	wrapPoint := sequence - bufferSize
	if wrapPoint <= cache.value || len(dependents) == 0 {
		return
	}

	minSequence := MinimumSequence(dependents)
	counter := sleepingRetries
	for wrapPoint > minSequence {
		counter = relax(counter)
		minSequence = MinimumSequence(dependents)
	}
	cache.value = minSequence
}

// hasCapacityAfter reports whether availableCapacity slots past sequence
// are free, refreshing cache when it has to rescan.
func hasCapacityAfter(sequence int64, availableCapacity int, bufferSize int64, dependents []*Sequence, cache *gatingCache) bool {
	wrapPoint := sequence + int64(availableCapacity) - bufferSize
	if wrapPoint <= cache.value || len(dependents) == 0 {
		return true
	}

	minSequence := MinimumSequence(dependents)
	cache.value = minSequence
	return wrapPoint <= minSequence
}
