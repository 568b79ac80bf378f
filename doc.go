// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package disruptor provides the sequencing core of a ring buffer
// disruptor: padded sequence counters, claim strategies that hand out slots
// to producers, and wait strategies that park consumers until those slots
// are published.
//
// The pieces compose into a pre-allocated ring:
//
//   - Sequence: a cache line padded int64 counter
//   - ClaimStrategy: single-producer and multi-producer slot claiming
//   - WaitStrategy: blocking, sleeping, yielding and busy-spin waiting
//   - SequenceBarrier: a consumer's view of the cursor and its dependents
//   - RingBuffer: slots, cursor and gating sequences
//   - BatchEventProcessor, WorkerPool: consumer run-loops
//
// # Quick Start
//
// Builder API selects strategies from constraints:
//
//	rb := disruptor.Build(disruptor.New(1024).SingleProducer().BusySpin(), newEvent)  // → SingleProducer + BusySpin
//	rb := disruptor.Build(disruptor.New(1024).Yielding(), newEvent)                   // → MultiProducer + Yielding
//	rb := disruptor.Build(disruptor.New(1024).LowContention(), newEvent)              // → LowContention + Blocking
//
// Direct constructors:
//
//	claim := disruptor.NewSingleProducerClaimStrategy(1024)
//	rb := disruptor.NewRingBuffer(newEvent, claim, disruptor.NewBlockingWaitStrategy())
//
// # Basic Usage
//
// Publishing is two-phase: claim a sequence, write the slot in place, then
// publish it.
//
//	seq := rb.Next()
//	ev := rb.Get(seq)
//	ev.Price = 42
//	rb.Publish(seq)
//
// Consumers wait on a barrier and process everything available as a batch:
//
//	p := disruptor.NewBatchEventProcessor(rb, rb.NewBarrier(), handler)
//	rb.SetGatingSequences(p.Sequence())
//
//	group := disruptor.NewProcessorGroup(p)
//	group.Start(disruptor.GoExecutor{})
//	// ...
//	group.Halt()
//	err := group.Wait()
//
// # Common Patterns
//
// Pipeline (each stage sees every event after the previous stage):
//
//	journal := disruptor.NewBatchEventProcessor(rb, rb.NewBarrier(), journaler)
//	business := disruptor.NewBatchEventProcessor(rb, rb.NewBarrier(journal.Sequence()), logic)
//	rb.SetGatingSequences(business.Sequence())
//
// Fan-out (independent consumers of the same events):
//
//	a := disruptor.NewBatchEventProcessor(rb, rb.NewBarrier(), replicator)
//	b := disruptor.NewBatchEventProcessor(rb, rb.NewBarrier(), archiver)
//	rb.SetGatingSequences(a.Sequence(), b.Sequence())
//
// Work distribution (each event to exactly one worker):
//
//	pool := disruptor.NewWorkerPool(rb, rb.NewBarrier(), handlers)
//	rb.SetGatingSequences(pool.WorkerSequences()...)
//	exec, _ := disruptor.NewPoolExecutor(len(handlers))
//	pool.Start(exec)
//
// Multiple producers, each with its own claim handle:
//
//	for range producers {
//	    go func() {
//	        pub := rb.NewPublisher()
//	        for ev := range input {
//	            seq := pub.Next()
//	            *pub.Get(seq) = ev
//	            pub.Publish(seq)
//	        }
//	    }()
//	}
//
// # Claim Strategies
//
//	SingleProducerClaimStrategy            - one publishing goroutine, plain counter
//	MultiProducerClaimStrategy             - CAS claims, out-of-order publication via a pending ring
//	MultiProducerLowContentionClaimStrategy - CAS claims, publishers wait for predecessors
//
// Each caller caches the minimum of the gating sequences and rescans only
// when a claim would pass it. Producers of a multi-producer strategy get a
// private cache from NewProducer (or RingBuffer.NewPublisher); direct calls
// borrow one from a pool.
//
// # Wait Strategies
//
//	BlockingWaitStrategy  - parks on a mutex and condition, lowest CPU
//	SleepingWaitStrategy  - spins, yields, then sleeps; good for background consumers
//	YieldingWaitStrategy  - spins then yields; low latency without burning a core
//	BusySpinWaitStrategy  - spins only; lowest latency, needs a dedicated core
//
// ParseWaitStrategy maps the names "blocking", "sleeping", "yielding" and
// "busyspin" to fresh strategies, for configuration files and flags.
//
// # Error Handling
//
// Non-blocking claims return [ErrInsufficientCapacity], which wraps
// [iox.ErrWouldBlock] from [code.hybscloud.com/iox]:
//
//	seq, err := rb.TryNext()
//	if disruptor.IsWouldBlock(err) {
//	    // Ring is full - handle backpressure
//	}
//
// Waits end with [ErrAlert] when the barrier is alerted, and with
// [ErrInterrupted] when the context bound by SequenceBarrier.WithContext is
// done. Both satisfy [IsAlert].
//
//	disruptor.IsWouldBlock(err)  // true if ring full
//	disruptor.IsAlert(err)       // true if alerted or interrupted
//	disruptor.IsSemantic(err)    // true if control flow signal
//	disruptor.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Thread Safety
//
//   - Sequence: safe for concurrent use
//   - SingleProducerClaimStrategy: one producer goroutine
//   - MultiProducer strategies: any number of producer goroutines
//   - Producer, Publisher: one goroutine at a time
//   - Wait strategies and barriers: any number of waiters
//
// # Logging
//
// Processors log through [Logger], a zap SugaredLogger by default. The level
// comes from DISRUPTOR_LOGGING_LEVEL and an optional rotating log file from
// DISRUPTOR_LOGGING_FILE. Use WithLogger to override per processor.
//
// # Race Detection
//
// Slot contents are plain memory ordered by the cursor's release and
// acquire. The race detector cannot observe this ordering and may report
// false positives; tests that publish plain slot data are excluded via
// [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions, [code.hybscloud.com/iox] for semantic errors and backoff,
// [go.uber.org/zap] for logging, [github.com/panjf2000/ants/v2] for pooled
// executors, and [golang.org/x/sys/unix] for CPU affinity on Linux.
package disruptor
