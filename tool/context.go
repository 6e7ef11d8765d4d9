package tool

import (
	"context"

	"github.com/hupe1980/agronix/logging"
)

// Context carries the per-call execution scope handed to a Tool.
type Context struct {
	ctx            context.Context
	userID         string
	functionCallID string
	logger         logging.Logger
}

// NewContext builds a tool Context. A nil logger is replaced by a no-op logger.
func NewContext(ctx context.Context, userID, functionCallID string, logger logging.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		ctx:            ctx,
		userID:         userID,
		functionCallID: functionCallID,
		logger:         logging.OrNoOp(logger),
	}
}

// Context returns the request context.
func (tc *Context) Context() context.Context { return tc.ctx }

// UserID returns the caller's user id; every tool is scoped to it.
func (tc *Context) UserID() string { return tc.userID }

// FunctionCallID correlates the execution with the model's call.
func (tc *Context) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger scoped to this call.
func (tc *Context) Logger() logging.Logger { return tc.logger }
