// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package disruptor

import (
	"fmt"

	"code.hybscloud.com/disruptor/internal/logging"
)

// Logger is used by processors for lifecycle and failure messages.
// *zap.SugaredLogger satisfies it.
type Logger = logging.Logger

// ProcessorOption configures an event processor or worker pool.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	name       string
	logger     Logger
	exceptions ExceptionHandler
	cpu        int
}

func loadProcessorOptions(opts ...ProcessorOption) processorOptions {
	o := processorOptions{cpu: -1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetDefaultLogger()
	}
	if o.exceptions == nil {
		o.exceptions = NewFatalExceptionHandler(o.logger)
	}
	return o
}

// WithName sets the name used in log messages.
func WithName(name string) ProcessorOption {
	return func(o *processorOptions) {
		o.name = name
	}
}

// WithLogger sets the logger. Defaults to the package logger configured by
// DISRUPTOR_LOGGING_LEVEL and DISRUPTOR_LOGGING_FILE.
func WithLogger(l Logger) ProcessorOption {
	return func(o *processorOptions) {
		o.logger = l
	}
}

// WithExceptionHandler sets the handler for event handler errors.
// Defaults to a FatalExceptionHandler.
func WithExceptionHandler(h ExceptionHandler) ProcessorOption {
	return func(o *processorOptions) {
		o.exceptions = h
	}
}

// WithCPU pins the processor's goroutine to an OS thread bound to core.
// Supported on Linux; elsewhere the thread is locked but not bound.
func WithCPU(core int) ProcessorOption {
	return func(o *processorOptions) {
		o.cpu = core
	}
}

// ExceptionHandler decides what happens when a handler returns an error.
//
// A nil return skips the failed event and keeps the processor running;
// a non-nil return stops the processor, and Run returns it.
type ExceptionHandler interface {
	HandleEventException(err error, sequence int64, event any) error
}

// IgnoreExceptionHandler logs the failure and continues with the next event.
type IgnoreExceptionHandler struct {
	logger Logger
}

// NewIgnoreExceptionHandler creates an IgnoreExceptionHandler.
// A nil logger uses the package logger.
func NewIgnoreExceptionHandler(l Logger) *IgnoreExceptionHandler {
	if l == nil {
		l = logging.GetDefaultLogger()
	}
	return &IgnoreExceptionHandler{logger: l}
}

// HandleEventException logs err and returns nil.
func (h *IgnoreExceptionHandler) HandleEventException(err error, sequence int64, event any) error {
	h.logger.Infof("exception processing sequence %d (%v): %v", sequence, event, err)
	return nil
}

// FatalExceptionHandler logs the failure and stops the processor.
type FatalExceptionHandler struct {
	logger Logger
}

// NewFatalExceptionHandler creates a FatalExceptionHandler.
// A nil logger uses the package logger.
func NewFatalExceptionHandler(l Logger) *FatalExceptionHandler {
	if l == nil {
		l = logging.GetDefaultLogger()
	}
	return &FatalExceptionHandler{logger: l}
}

// HandleEventException logs err and returns it wrapped with the sequence.
func (h *FatalExceptionHandler) HandleEventException(err error, sequence int64, event any) error {
	h.logger.Errorf("exception processing sequence %d (%v): %v", sequence, event, err)
	return fmt.Errorf("disruptor: sequence %d: %w", sequence, err)
}
