// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// Concurrent sequencing tests excluded from race detection.
//
// Go's race detector tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established through
// atomix memory orderings (acquire-release semantics).
//
// These tests publish plain slot data ordered by the cursor's release store and
// the consumer's acquire load. The protocol is correct, but the race detector
// reports false positives because it cannot track the synchronization provided
// by atomic operations on separate variables.

package disruptor_test

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/disruptor"
	"code.hybscloud.com/iox"
)

// waitUntil retries cond with backoff until it holds or timeout passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		backoff.Wait()
	}
}

// =============================================================================
// Sequence - Concurrency
// =============================================================================

// TestSequenceConcurrentIncrement checks concurrent increments are neither
// lost nor duplicated.
func TestSequenceConcurrentIncrement(t *testing.T) {
	const (
		goroutines = 8
		perG       = 10000
		total      = goroutines * perG
	)
	s := disruptor.NewSequence(disruptor.InitialCursorValue)

	results := make([][]int64, goroutines)
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := make([]int64, 0, perG)
			for range perG {
				got = append(got, s.IncrementAndGet())
			}
			results[g] = got
		}()
	}
	wg.Wait()

	if got := s.Get(); got != total-1 {
		t.Fatalf("final value: got %d, want %d", got, total-1)
	}
	all := slices.Concat(results...)
	slices.Sort(all)
	for i, v := range all {
		if v != int64(i) {
			t.Fatalf("returned values: position %d holds %d (duplicate or gap)", i, v)
		}
	}
}

func TestSequenceHandoff(t *testing.T) {
	s := disruptor.NewSequence(disruptor.InitialCursorValue)
	done := make(chan struct{})
	go func() {
		s.Set(12345)
		close(done)
	}()
	<-done
	if got := s.Get(); got != 12345 {
		t.Fatalf("Get after handoff: got %d, want 12345", got)
	}
}

// =============================================================================
// Claim Strategies - Concurrency
// =============================================================================

// TestMultiProducerConcurrentClaims checks concurrent claims return exactly
// the sequences 0..K-1.
func TestMultiProducerConcurrentClaims(t *testing.T) {
	const (
		producers = 8
		perP      = 5000
		total     = producers * perP
	)
	tests := []struct {
		name   string
		claims func() []disruptor.ClaimStrategy
	}{
		{"Shared", func() []disruptor.ClaimStrategy {
			c := disruptor.NewMultiProducerClaimStrategy(1024)
			return slices.Repeat([]disruptor.ClaimStrategy{c}, producers)
		}},
		{"LowContention", func() []disruptor.ClaimStrategy {
			c := disruptor.NewMultiProducerLowContentionClaimStrategy(1024)
			return slices.Repeat([]disruptor.ClaimStrategy{c}, producers)
		}},
		{"ProducerHandles", func() []disruptor.ClaimStrategy {
			c := disruptor.NewMultiProducerClaimStrategy(1024)
			out := make([]disruptor.ClaimStrategy, producers)
			for i := range out {
				out[i] = c.NewProducer()
			}
			return out
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := tt.claims()
			results := make([][]int64, producers)
			var wg sync.WaitGroup
			for p := range producers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got := make([]int64, 0, perP)
					for i := range perP {
						if i%2 == 0 {
							got = append(got, claims[p].IncrementAndGet(nil))
							continue
						}
						seq, err := claims[p].CheckAndIncrement(1, 1, nil)
						if err != nil {
							t.Errorf("CheckAndIncrement: %v", err)
							return
						}
						got = append(got, seq)
					}
					results[p] = got
				}()
			}
			wg.Wait()

			all := slices.Concat(results...)
			if len(all) != total {
				t.Fatalf("claims: got %d, want %d", len(all), total)
			}
			slices.Sort(all)
			for i, v := range all {
				if v != int64(i) {
					t.Fatalf("claimed sequences: position %d holds %d (duplicate or gap)", i, v)
				}
			}
		})
	}
}

// TestSingleProducerWrapWait runs the buffer-of-two trace: the claim of 2
// waits for the consumer to reach 0, and the claim of 4 for it to reach 2.
func TestSingleProducerWrapWait(t *testing.T) {
	claim := disruptor.NewSingleProducerClaimStrategy(2)
	gate := disruptor.NewSequence(disruptor.InitialCursorValue)
	deps := []*disruptor.Sequence{gate}

	var claimed atomix.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 5 {
			claim.IncrementAndGet(deps)
			claimed.Add(1)
		}
	}()

	settled := func(want int64) {
		t.Helper()
		waitUntil(t, 2*time.Second, func() bool { return claimed.Load() == want })
		time.Sleep(20 * time.Millisecond)
		if got := claimed.Load(); got != want {
			t.Fatalf("producer ran ahead of the consumer: %d claims, want %d", got, want)
		}
	}

	// 0 and 1 fit; 2 has wrap point 0.
	settled(2)

	// 2 and 3 fit; 4 has wrap point 2.
	gate.Set(1)
	settled(4)

	gate.Set(2)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer still blocked after consumer reached 2")
	}
	if got := claim.Sequence(); got != 4 {
		t.Fatalf("Sequence: got %d, want 4", got)
	}
}

// TestRingBufferConcurrentAddGating checks concurrent AddGatingSequences
// calls never drop a sequence.
func TestRingBufferConcurrentAddGating(t *testing.T) {
	const (
		goroutines = 8
		perG       = 50
	)
	rb := disruptor.Build(disruptor.New(8), newEvent)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perG {
				rb.AddGatingSequences(disruptor.NewSequence(disruptor.InitialCursorValue))
			}
		}()
	}
	waitGroupWithin(t, &wg, 5*time.Second)

	got := rb.GatingSequences()
	if len(got) != goroutines*perG {
		t.Fatalf("GatingSequences: got %d, want %d", len(got), goroutines*perG)
	}
	seen := make(map[*disruptor.Sequence]bool, len(got))
	for _, seq := range got {
		if seen[seq] {
			t.Fatal("duplicate gating sequence")
		}
		seen[seq] = true
	}
}

// TestRingBufferNoOverwrite runs producers against a slow consumer on a
// small ring and checks every slot the consumer reads still holds the
// sequence it was published with.
func TestRingBufferNoOverwrite(t *testing.T) {
	const (
		producers = 4
		perP      = 5000
		total     = producers * perP
	)
	builders := map[string]func() *disruptor.Builder{
		"MultiProducer":  func() *disruptor.Builder { return disruptor.New(16).Yielding() },
		"SmallPending":   func() *disruptor.Builder { return disruptor.New(16).PendingBuffer(4).BusySpin() },
		"LowContention":  func() *disruptor.Builder { return disruptor.New(16).LowContention().Sleeping() },
		"BlockingWaiter": func() *disruptor.Builder { return disruptor.New(16).Blocking() },
	}
	for name, newBuilder := range builders {
		t.Run(name, func(t *testing.T) {
			rb := disruptor.Build(newBuilder(), newEvent)
			consumer := disruptor.NewSequence(disruptor.InitialCursorValue)
			rb.SetGatingSequences(consumer)
			barrier := rb.NewBarrier()

			var wg sync.WaitGroup
			for range producers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					pub := rb.NewPublisher()
					for range perP {
						seq := pub.Next()
						pub.Get(seq).Value = seq
						pub.Publish(seq)
					}
				}()
			}

			drain(t, rb, barrier, consumer, total, 10*time.Second)
			waitGroupWithin(t, &wg, 5*time.Second)

			if got := rb.Cursor(); got != total-1 {
				t.Fatalf("Cursor: got %d, want %d", got, total-1)
			}
		})
	}
}

// drain consumes sequences [0, total) through barrier, checking each slot
// holds its own sequence, and fails if that takes longer than timeout.
func drain(t *testing.T, rb *disruptor.RingBuffer[event], barrier *disruptor.SequenceBarrier,
	consumer *disruptor.Sequence, total int64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	next := int64(0)
	for next < total {
		if time.Now().After(deadline) {
			t.Fatalf("consumed %d/%d events within %v", next, total, timeout)
		}
		avail, err := barrier.WaitForTimeout(next, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("WaitForTimeout(%d): %v", next, err)
		}
		for ; next <= avail; next++ {
			if got := rb.Get(next).Value; got != next {
				t.Fatalf("slot %d holds %d: overwritten or unpublished", next, got)
			}
		}
		consumer.Set(next - 1)
	}
}

func waitGroupWithin(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("producers did not finish within %v", timeout)
	}
}

// TestRingBufferSingleProcessorProgress runs a producer and a consumer that
// share one P. A producer waiting for a free slot must let the consumer run
// long before its sleep tier.
func TestRingBufferSingleProcessorProgress(t *testing.T) {
	const total = 20000
	prev := runtime.GOMAXPROCS(1)
	t.Cleanup(func() { runtime.GOMAXPROCS(prev) })

	builders := map[string]func() *disruptor.Builder{
		"SingleProducer": func() *disruptor.Builder { return disruptor.New(16).SingleProducer().Blocking() },
		"MultiProducer":  func() *disruptor.Builder { return disruptor.New(16).Blocking() },
		"LowContention":  func() *disruptor.Builder { return disruptor.New(16).LowContention().Yielding() },
	}
	for name, newBuilder := range builders {
		t.Run(name, func(t *testing.T) {
			rb := disruptor.Build(newBuilder(), newEvent)
			consumer := disruptor.NewSequence(disruptor.InitialCursorValue)
			rb.SetGatingSequences(consumer)
			barrier := rb.NewBarrier()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range total {
					seq := rb.Next()
					rb.Get(seq).Value = seq
					rb.Publish(seq)
				}
			}()

			drain(t, rb, barrier, consumer, total, 5*time.Second)
			waitGroupWithin(t, &wg, 5*time.Second)
		})
	}
}

// =============================================================================
// Wait Strategies - Concurrency
// =============================================================================

// TestBlockingWaitRelease checks a parked consumer is released promptly
// after a publish and signal.
func TestBlockingWaitRelease(t *testing.T) {
	w := disruptor.NewBlockingWaitStrategy()
	cursor := disruptor.NewSequence(disruptor.InitialCursorValue)
	barrier := disruptor.NewSequenceBarrier(w, cursor)

	type result struct {
		seq int64
		err error
	}
	out := make(chan result, 1)
	go func() {
		seq, err := barrier.WaitFor(0)
		out <- result{seq, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cursor.Set(0)
	w.SignalAllWhenBlocking()

	select {
	case r := <-out:
		if r.err != nil || r.seq != 0 {
			t.Fatalf("WaitFor: got %d, %v; want 0, nil", r.seq, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer not released after signal")
	}
}

// TestWaitAlertReleases checks Alert wakes a consumer blocked in every
// strategy, including one blocked on dependents.
func TestWaitAlertReleases(t *testing.T) {
	for _, tt := range waitStrategies() {
		t.Run(tt.name, func(t *testing.T) {
			cursor := disruptor.NewSequence(5)
			upstream := disruptor.NewSequence(disruptor.InitialCursorValue)
			barriers := []*disruptor.SequenceBarrier{
				disruptor.NewSequenceBarrier(tt.wait, cursor),
				disruptor.NewSequenceBarrier(tt.wait, cursor, upstream),
			}
			for i, barrier := range barriers {
				errs := make(chan error, 1)
				go func() {
					_, err := barrier.WaitFor(6 - int64(i))
					errs <- err
				}()

				time.Sleep(10 * time.Millisecond)
				barrier.Alert()

				select {
				case err := <-errs:
					if !errors.Is(err, disruptor.ErrAlert) {
						t.Fatalf("barrier %d: got %v, want ErrAlert", i, err)
					}
				case <-time.After(time.Second):
					t.Fatalf("barrier %d: waiter not released by Alert", i)
				}
			}
		})
	}
}

func TestWaitContextReleases(t *testing.T) {
	for _, tt := range waitStrategies() {
		t.Run(tt.name, func(t *testing.T) {
			cursor := disruptor.NewSequence(disruptor.InitialCursorValue)
			ctx, cancel := context.WithCancel(context.Background())
			barrier := disruptor.NewSequenceBarrier(tt.wait, cursor).WithContext(ctx)

			errs := make(chan error, 1)
			go func() {
				_, err := barrier.WaitFor(0)
				errs <- err
			}()

			time.Sleep(10 * time.Millisecond)
			cancel()

			select {
			case err := <-errs:
				if !errors.Is(err, disruptor.ErrInterrupted) || !errors.Is(err, context.Canceled) {
					t.Fatalf("got %v, want ErrInterrupted wrapping context.Canceled", err)
				}
			case <-time.After(time.Second):
				t.Fatal("waiter not released by context cancel")
			}
		})
	}
}

// TestWaitDependentsAdvance checks a consumer waiting on an upstream stage
// is released by that stage's progress alone.
func TestWaitDependentsAdvance(t *testing.T) {
	for _, tt := range waitStrategies() {
		t.Run(tt.name, func(t *testing.T) {
			cursor := disruptor.NewSequence(10)
			upstream := disruptor.NewSequence(2)
			barrier := disruptor.NewSequenceBarrier(tt.wait, cursor, upstream)

			out := make(chan int64, 1)
			go func() {
				seq, err := barrier.WaitFor(5)
				if err != nil {
					t.Errorf("WaitFor: %v", err)
				}
				out <- seq
			}()

			time.Sleep(10 * time.Millisecond)
			upstream.Set(7)

			select {
			case got := <-out:
				if got != 7 {
					t.Fatalf("WaitFor(5): got %d, want 7", got)
				}
			case <-time.After(time.Second):
				t.Fatal("waiter not released by upstream progress")
			}
		})
	}
}
