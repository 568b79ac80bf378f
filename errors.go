// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrInsufficientCapacity indicates a non-blocking claim found no free slot.
//
// It wraps [iox.ErrWouldBlock]: running out of capacity is a control flow
// signal, not a failure. The claim cursor is left unchanged, and the caller
// decides whether to retry, drop, or push back upstream.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    seq, err := rb.TryNext()
//	    if err == nil {
//	        backoff.Reset()
//	        *rb.Get(seq) = ev
//	        rb.Publish(seq)
//	        break
//	    }
//	    if !disruptor.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
var ErrInsufficientCapacity = fmt.Errorf("disruptor: insufficient capacity: %w", iox.ErrWouldBlock)

// ErrAlert indicates the barrier a waiter depends on has been alerted.
//
// Every wait loop checks the alert on each iteration, so a single Alert
// releases all blocked consumers. Processors treat it as a request to stop.
var ErrAlert = errors.New("disruptor: alerted")

// ErrInterrupted indicates the context bound to a barrier is done.
// It wraps [ErrAlert]; the returned error also wraps the context cause.
var ErrInterrupted = fmt.Errorf("%w: interrupted", ErrAlert)

// IsAlert reports whether err is an alert or an interruption.
func IsAlert(err error) bool {
	return errors.Is(err, ErrAlert)
}

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic]; ErrInsufficientCapacity counts as one.
func IsSemantic(err error) bool {
	return IsWouldBlock(err) || iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure]; ErrInsufficientCapacity counts as one.
func IsNonFailure(err error) bool {
	return IsWouldBlock(err) || iox.IsNonFailure(err)
}
