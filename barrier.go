// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"context"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
)

// SequenceBarrier is what consumers wait on.
//
// It composes a wait strategy with the ring's publish cursor and the
// sequences of upstream consumers. A barrier without dependents releases a
// consumer as soon as a slot is published; a barrier with dependents only
// once every upstream consumer has processed it.
//
// Alert wakes every consumer blocked on the barrier with ErrAlert, which is
// how processors are stopped. A bound context does the same with
// ErrInterrupted once it is done.
type SequenceBarrier struct {
	wait       WaitStrategy
	cursor     *Sequence
	dependents []*Sequence
	ctx        context.Context
	_          pad
	alerted    atomix.Bool
	_          padShort
}

// NewSequenceBarrier creates a barrier over cursor and dependents.
// Most callers use RingBuffer.NewBarrier instead.
func NewSequenceBarrier(wait WaitStrategy, cursor *Sequence, dependents ...*Sequence) *SequenceBarrier {
	return &SequenceBarrier{
		wait:       wait,
		cursor:     cursor,
		dependents: dependents,
	}
}

// WithContext returns a barrier over the same sequences that is also
// interrupted when ctx is done. The new barrier has its own alert state.
func (b *SequenceBarrier) WithContext(ctx context.Context) *SequenceBarrier {
	return &SequenceBarrier{
		wait:       b.wait,
		cursor:     b.cursor,
		dependents: b.dependents,
		ctx:        ctx,
	}
}

// WaitFor blocks until sequence is available and returns the highest
// available sequence, which may be greater than sequence.
func (b *SequenceBarrier) WaitFor(sequence int64) (int64, error) {
	if err := b.CheckAlert(); err != nil {
		return InitialCursorValue, err
	}
	return b.wait.WaitFor(sequence, b.cursor, b.dependents, b)
}

// WaitForTimeout is WaitFor bounded by timeout. On expiry it returns the
// last observed sequence, possibly below sequence, and a nil error.
func (b *SequenceBarrier) WaitForTimeout(sequence int64, timeout time.Duration) (int64, error) {
	if err := b.CheckAlert(); err != nil {
		return InitialCursorValue, err
	}
	return b.wait.WaitForTimeout(sequence, b.cursor, b.dependents, b, timeout)
}

// Cursor returns the publish cursor value.
func (b *SequenceBarrier) Cursor() int64 {
	return b.cursor.Get()
}

// IsAlerted reports whether Alert has been called since the last ClearAlert.
func (b *SequenceBarrier) IsAlerted() bool {
	return b.alerted.LoadAcquire()
}

// Alert makes every current and future wait on the barrier fail with
// ErrAlert, and wakes blocked waiters.
func (b *SequenceBarrier) Alert() {
	b.alerted.StoreRelease(true)
	b.wait.SignalAllWhenBlocking()
}

// ClearAlert resets the alert.
func (b *SequenceBarrier) ClearAlert() {
	b.alerted.StoreRelease(false)
}

// CheckAlert returns ErrAlert if the barrier is alerted, or an error
// wrapping ErrInterrupted and the context cause if its context is done.
func (b *SequenceBarrier) CheckAlert() error {
	if b.alerted.LoadAcquire() {
		return ErrAlert
	}
	if b.ctx != nil && b.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(b.ctx))
	}
	return nil
}
