package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agronix/core"
	"github.com/hupe1980/agronix/logging"
	"github.com/hupe1980/agronix/model"
)

// callRecorder is implemented by loggers that record tool call metrics
// (logging.StructuredLogger).
type callRecorder interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
}

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	Logger logging.Logger
}

// Dispatcher routes model function calls to a closed set of tools fixed at
// construction time.
type Dispatcher struct {
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// NewDispatcher builds a Dispatcher over tools. Duplicate or empty names are rejected.
func NewDispatcher(tools []Tool, optFns ...func(o *DispatcherOptions)) (*Dispatcher, error) {
	opts := DispatcherOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	d := &Dispatcher{
		tools:  make(map[string]Tool, len(tools)),
		order:  make([]string, 0, len(tools)),
		logger: logging.OrNoOp(opts.Logger),
	}

	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, errors.New("tool with empty name")
		}
		if _, dup := d.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		d.tools[name] = t
		d.order = append(d.order, name)
	}

	return d, nil
}

// Names returns the registered tool names in registration order.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Definitions returns the tool declarations sent to the model.
func (d *Dispatcher) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(d.order))
	for _, name := range d.order {
		t := d.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Dispatch executes one function call for userID. It never panics and never
// returns a Go error: every failure is folded into an error Result.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, call core.FunctionCall) (res Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool.call.panic", "tool", call.Name, "fc_id", call.ID, "panic", fmt.Sprint(r))
			res = Failure(fmt.Sprintf("Tool %s failed unexpectedly", call.Name))
			res.Action = call.Name
			d.record(call.Name, start, &ToolError{Tool: call.Name, Message: fmt.Sprint(r), Code: CodePanic})
		}
	}()

	if strings.TrimSpace(userID) == "" {
		res = Failure("User ID required")
		res.Action = call.Name
		return res
	}

	t, ok := d.tools[call.Name]
	if !ok {
		d.logger.Warn("tool.call.unknown", "tool", call.Name, "fc_id", call.ID)
		res = Failure(fmt.Sprintf("Unknown tool: %s", call.Name))
		res.Action = call.Name
		d.record(call.Name, start, NewToolError(call.Name, "unknown tool", CodeUnknownTool))
		return res
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			d.logger.Warn("tool.call.bad_arguments", "tool", call.Name, "error", err.Error())
			res = Failure(fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err))
			res.Action = call.Name
			d.record(call.Name, start, err)
			return res
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	res, err := t.Call(NewContext(ctx, userID, call.ID, d.logger), args)
	if err != nil {
		res = Failure(errorMessage(call.Name, err))
		res.Action = call.Name
		d.record(call.Name, start, err)
		return res
	}

	res.Action = call.Name
	d.record(call.Name, start, nil)

	return res
}

func (d *Dispatcher) record(name string, start time.Time, err error) {
	if rec, ok := d.logger.(callRecorder); ok {
		rec.LogToolCall(name, time.Since(start), err == nil, err)
	}
}

func errorMessage(name string, err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if toolErr.Code == CodeValidation {
			return fmt.Sprintf("Invalid arguments for %s: %s", name, toolErr.Message)
		}
		return toolErr.Message
	}
	return err.Error()
}
