// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// blockingRecheckInterval bounds each park so the alert is re-checked even
// if no publisher ever signals.
const blockingRecheckInterval = time.Millisecond

// BlockingWaitStrategy parks consumers on a condition until a publisher
// signals.
//
// The condition is a broadcast channel replaced under the mutex on every
// signal, which gives a condition variable with timed waits. Publishers
// skip the mutex entirely while nobody is parked.
//
// Only the cursor is signalled. Progress of dependent consumers is not, so
// once the cursor is reached the dependents are spun on outside the lock.
//
// The mutex parks and wakes goroutines; it never guards slot data.
type BlockingWaitStrategy struct {
	mu      sync.Mutex
	notify  chan struct{}
	_       pad
	waiters atomix.Int32
	_       padShort
}

// NewBlockingWaitStrategy creates a blocking wait strategy.
func NewBlockingWaitStrategy() *BlockingWaitStrategy {
	return &BlockingWaitStrategy{notify: make(chan struct{})}
}

// WaitFor blocks until sequence is available or the alerter fires.
func (w *BlockingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, time.Time{})
}

// WaitForTimeout is WaitFor bounded by timeout.
func (w *BlockingWaitStrategy) WaitForTimeout(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, timeout time.Duration) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, deadlineAfter(timeout))
}

// SignalAllWhenBlocking wakes every parked waiter.
func (w *BlockingWaitStrategy) SignalAllWhenBlocking() {
	if w.waiters.Load() == 0 {
		return
	}
	w.mu.Lock()
	close(w.notify)
	w.notify = make(chan struct{})
	w.mu.Unlock()
}

func (w *BlockingWaitStrategy) wait(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, deadline time.Time) (int64, error) {
	available := cursor.Get()
	if available < sequence {
		var err error
		available, err = w.park(sequence, cursor, alerter, deadline)
		if err != nil || available < sequence {
			return available, err
		}
	}

	if len(dependents) == 0 {
		return available, nil
	}

	sw := spin.Wait{}
	for {
		available = MinimumSequence(dependents)
		if available >= sequence || expired(deadline) {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}
		sw.Once()
	}
}

// park waits under the mutex until the cursor reaches sequence, the
// deadline passes, or the alerter fires.
func (w *BlockingWaitStrategy) park(sequence int64, cursor *Sequence, alerter Alerter, deadline time.Time) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waiters.Add(1)
	defer w.waiters.Add(-1)

	timer := time.NewTimer(blockingRecheckInterval)
	defer timer.Stop()

	for {
		// Re-read under the lock: a publish between the caller's check and
		// the waiter count increment would otherwise go unseen.
		available := cursor.Get()
		if available >= sequence {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}

		d := blockingRecheckInterval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return available, nil
			}
			d = min(d, remaining)
		}

		notify := w.notify
		timer.Reset(d)
		w.mu.Unlock()
		select {
		case <-notify:
			timer.Stop()
		case <-timer.C:
		}
		w.mu.Lock()
	}
}
