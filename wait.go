// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"code.hybscloud.com/spin"
)

// Alerter is polled by every wait loop.
// A non-nil error from CheckAlert ends the wait with that error.
type Alerter interface {
	CheckAlert() error
}

// WaitStrategy parks a consumer until a target sequence is available.
//
// Without dependents the wait is on cursor (the publish position). With
// dependents the wait is on their minimum, recomputed on every iteration,
// because upstream consumers advance independently of the cursor.
//
// The returned sequence may exceed the target: callers should process
// everything up to it as one batch. On error the returned sequence is the
// last value observed and must not be consumed past.
//
// Variants trade CPU for latency:
//   - BlockingWaitStrategy: mutex and condition, lowest CPU
//   - SleepingWaitStrategy: spin, then yield, then sleep
//   - YieldingWaitStrategy: spin, then yield every iteration
//   - BusySpinWaitStrategy: spin only, lowest latency
type WaitStrategy interface {
	// WaitFor blocks until sequence is available or alerter reports an error.
	WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter) (int64, error)

	// WaitForTimeout is WaitFor bounded by timeout. On expiry it returns
	// the last observed sequence and a nil error; callers re-check progress.
	WaitForTimeout(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, timeout time.Duration) (int64, error)

	// SignalAllWhenBlocking wakes waiters parked by the strategy.
	// Called by publishers after every cursor advance.
	SignalAllWhenBlocking()
}

// availableSequence is the value a waiter compares against its target.
func availableSequence(cursor *Sequence, dependents []*Sequence) int64 {
	if len(dependents) == 0 {
		return cursor.Get()
	}
	return MinimumSequence(dependents)
}

// expired reports whether deadline is set and has passed.
func expired(deadline time.Time) bool {
	return !deadline.IsZero() && !time.Now().Before(deadline)
}

func deadlineAfter(timeout time.Duration) time.Time {
	return time.Now().Add(timeout)
}

// =============================================================================
// Sleeping
// =============================================================================

const (
	sleepingRetries   = 200
	sleepingSpinFloor = 100
)

// SleepingWaitStrategy spins, then yields, then sleeps.
//
// Each WaitFor starts with a budget of 200 iterations: the first 100 spin,
// the next 100 yield the processor, and every later iteration sleeps for
// the shortest duration the scheduler offers. The budget resets on every
// call, so a consumer that waits often for small increments stays in the
// spin tier; CPU burn is bounded only after a sustained quiet period.
type SleepingWaitStrategy struct{}

// NewSleepingWaitStrategy creates a sleeping wait strategy.
func NewSleepingWaitStrategy() *SleepingWaitStrategy {
	return &SleepingWaitStrategy{}
}

// WaitFor blocks until sequence is available or the alerter fires.
func (w *SleepingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, time.Time{})
}

// WaitForTimeout is WaitFor bounded by timeout.
func (w *SleepingWaitStrategy) WaitForTimeout(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, timeout time.Duration) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, deadlineAfter(timeout))
}

// SignalAllWhenBlocking is a no-op: sleepers poll.
func (w *SleepingWaitStrategy) SignalAllWhenBlocking() {}

func (w *SleepingWaitStrategy) wait(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, deadline time.Time) (int64, error) {
	counter := sleepingRetries
	for {
		available := availableSequence(cursor, dependents)
		if available >= sequence || expired(deadline) {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}
		counter = relax(counter)
	}
}

// relax runs one step of the sleeping schedule and returns the remaining
// budget: a CPU pause while above sleepingSpinFloor, a yield while above
// zero, a sleep after that.
func relax(counter int) int {
	switch {
	case counter > sleepingSpinFloor:
		spin.Pause()
		return counter - 1
	case counter > 0:
		runtime.Gosched()
		return counter - 1
	default:
		time.Sleep(parkDuration)
		return 0
	}
}

// =============================================================================
// Yielding
// =============================================================================

const yieldingSpinTries = 100

// YieldingWaitStrategy spins briefly, then yields on every iteration.
// Low latency at the cost of a busy processor; suits a consumer that has a
// core to itself but may share it under load.
type YieldingWaitStrategy struct{}

// NewYieldingWaitStrategy creates a yielding wait strategy.
func NewYieldingWaitStrategy() *YieldingWaitStrategy {
	return &YieldingWaitStrategy{}
}

// WaitFor blocks until sequence is available or the alerter fires.
func (w *YieldingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, time.Time{})
}

// WaitForTimeout is WaitFor bounded by timeout.
func (w *YieldingWaitStrategy) WaitForTimeout(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, timeout time.Duration) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, deadlineAfter(timeout))
}

// SignalAllWhenBlocking is a no-op.
func (w *YieldingWaitStrategy) SignalAllWhenBlocking() {}

func (w *YieldingWaitStrategy) wait(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, deadline time.Time) (int64, error) {
	counter := yieldingSpinTries
	for {
		available := availableSequence(cursor, dependents)
		if available >= sequence || expired(deadline) {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}
		if counter > 0 {
			counter--
		} else {
			runtime.Gosched()
		}
	}
}

// =============================================================================
// Busy spin
// =============================================================================

// BusySpinWaitStrategy spins with a CPU pause hint and never yields.
// Use only when every consumer has a dedicated core.
type BusySpinWaitStrategy struct{}

// NewBusySpinWaitStrategy creates a busy spin wait strategy.
func NewBusySpinWaitStrategy() *BusySpinWaitStrategy {
	return &BusySpinWaitStrategy{}
}

// WaitFor blocks until sequence is available or the alerter fires.
func (w *BusySpinWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, time.Time{})
}

// WaitForTimeout is WaitFor bounded by timeout.
func (w *BusySpinWaitStrategy) WaitForTimeout(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, timeout time.Duration) (int64, error) {
	return w.wait(sequence, cursor, dependents, alerter, deadlineAfter(timeout))
}

// SignalAllWhenBlocking is a no-op.
func (w *BusySpinWaitStrategy) SignalAllWhenBlocking() {}

func (w *BusySpinWaitStrategy) wait(sequence int64, cursor *Sequence, dependents []*Sequence, alerter Alerter, deadline time.Time) (int64, error) {
	sw := spin.Wait{}
	for {
		available := availableSequence(cursor, dependents)
		if available >= sequence || expired(deadline) {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}
		sw.Once()
	}
}

// =============================================================================
// Selection by name
// =============================================================================

var waitStrategies = map[string]func() WaitStrategy{
	"blocking": func() WaitStrategy { return NewBlockingWaitStrategy() },
	"sleeping": func() WaitStrategy { return NewSleepingWaitStrategy() },
	"yielding": func() WaitStrategy { return NewYieldingWaitStrategy() },
	"busyspin": func() WaitStrategy { return NewBusySpinWaitStrategy() },
}

// WaitStrategyNames returns the names accepted by ParseWaitStrategy, sorted.
func WaitStrategyNames() []string {
	names := make([]string, 0, len(waitStrategies))
	for name := range waitStrategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseWaitStrategy returns a new wait strategy by name.
// Names are case-insensitive; "busy-spin" and "busy_spin" are accepted.
func ParseWaitStrategy(name string) (WaitStrategy, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(name))
	ctor, ok := waitStrategies[key]
	if !ok {
		return nil, fmt.Errorf("disruptor: unknown wait strategy %q (want one of %v)", name, WaitStrategyNames())
	}
	return ctor(), nil
}
