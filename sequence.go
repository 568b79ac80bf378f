// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"math"
	"strconv"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// InitialCursorValue is the value of a sequence before any slot has been
// claimed or published.
const InitialCursorValue int64 = -1

// Sequence is a padded int64 progress counter.
//
// The live value sits between two full cache lines of padding so that
// independently written sequences (the publish cursor, each consumer's
// progress) never share a cache line.
//
// Memory ordering:
//   - Get is an acquire load
//   - Set is a release store
//   - CompareAndSet, IncrementAndGet and AddAndGet are acquire-release
//
// A Sequence must not be copied after first use.
type Sequence struct {
	_     pad
	value atomix.Int64
	_     pad
}

// NewSequence creates a sequence holding initial.
func NewSequence(initial int64) *Sequence {
	s := &Sequence{}
	s.value.StoreRelease(initial)
	return s
}

// Get returns the current value.
func (s *Sequence) Get() int64 {
	return s.value.LoadAcquire()
}

// Set stores value with release ordering.
// Writes made before Set are visible to any goroutine that observes value
// through Get.
func (s *Sequence) Set(value int64) {
	s.value.StoreRelease(value)
}

// CompareAndSet atomically sets the value to next if it currently equals
// expected. Reports whether the swap happened.
func (s *Sequence) CompareAndSet(expected, next int64) bool {
	return s.value.CompareAndSwapAcqRel(expected, next)
}

// IncrementAndGet adds one and returns the new value.
func (s *Sequence) IncrementAndGet() int64 {
	return s.AddAndGet(1)
}

// AddAndGet adds delta and returns the new value.
//
// Implemented as a CAS retry loop: concurrent callers each observe a
// distinct result and no increment is lost.
func (s *Sequence) AddAndGet(delta int64) int64 {
	sw := spin.Wait{}
	for {
		current := s.value.LoadAcquire()
		next := current + delta
		if s.value.CompareAndSwapAcqRel(current, next) {
			return next
		}
		sw.Once()
	}
}

// String returns the decimal value.
func (s *Sequence) String() string {
	return strconv.FormatInt(s.Get(), 10)
}

// MinimumSequence returns the smallest value among seqs.
// Returns math.MaxInt64 when seqs is empty, which gates nothing.
func MinimumSequence(seqs []*Sequence) int64 {
	minimum := int64(math.MaxInt64)
	for _, s := range seqs {
		if v := s.Get(); v < minimum {
			minimum = v
		}
	}
	return minimum
}

// minimumSequenceOr is MinimumSequence with an explicit value for the empty set.
func minimumSequenceOr(seqs []*Sequence, fallback int64) int64 {
	if len(seqs) == 0 {
		return fallback
	}
	return MinimumSequence(seqs)
}
