package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agronix/internal/util"
)

// Typed adapts a function over a concrete argument struct into a Tool.
//
// The parameter schema is derived from A by reflection (json, description and
// enum tags). Incoming arguments are validated against the schema, then
// decoded into a fresh A before fn runs. Errors are normalized to *ToolError:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> fn returned a plain error
//	(custom codes preserved if fn returns *ToolError directly)
//
// A Typed tool has no mutable state after construction and is safe for
// concurrent use.
type Typed[A any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(tc *Context, args A) (Result, error)
}

// NewTyped constructs a Typed tool.
//
// Example:
//
//	type DeleteArgs struct {
//	  EventID string `json:"event_id" description:"Event to delete"`
//	}
//
//	del := NewTyped("delete_calendar_event", "Delete an event",
//	  func(tc *Context, args DeleteArgs) (Result, error) { ... })
func NewTyped[A any](name, description string, fn func(tc *Context, args A) (Result, error)) *Typed[A] {
	var zero A
	return &Typed[A]{
		name:        name,
		description: description,
		parameters:  util.CreateSchema(zero),
		fn:          fn,
	}
}

// Name returns the unique tool name.
func (t *Typed[A]) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *Typed[A]) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *Typed[A]) Parameters() map[string]any { return t.parameters }

// Call validates and decodes args, then invokes the wrapped function.
func (t *Typed[A]) Call(tc *Context, args map[string]any) (Result, error) {
	logger := tc.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", tc.FunctionCallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return Result{}, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeValidation,
			Details: err,
			cause:   err,
		}
	}

	typed, err := decode[A](args)
	if err != nil {
		return Result{}, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("cannot decode arguments: %v", err),
			Code:    CodeValidation,
			cause:   err,
		}
	}

	result, err := t.fn(tc, typed)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)
			return Result{}, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return Result{}, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			cause:   err,
		}
	}

	result.Action = t.name

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

func decode[A any](args map[string]any) (A, error) {
	var out A
	raw, err := json.Marshal(args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
