// Package tool implements the function / tool calling subsystem that lets the
// assistant execute structured actions requested by the model with schema
// validated arguments and a uniform success / error result.
package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agronix/internal/util"
)

// Tool defines a capability the model may invoke by name.
//
// Tool implementations should:
//   - Provide clear, descriptive snake_case names and descriptions
//   - Define a JSON schema for their parameters
//   - Be safe for concurrent use across users
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with decoded JSON arguments.
	Call(tc *Context, args map[string]any) (Result, error)
}

// Status tags a Result as success or error.
type Status string

// Result statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the structured outcome of one tool invocation.
type Result struct {
	Action  string         `json:"action"`
	Status  Status         `json:"result"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Success builds a success result.
func Success(message string, details map[string]any) Result {
	return Result{Status: StatusSuccess, Message: message, Details: details}
}

// Failure builds an error result. Messages are prefixed with the error marker.
func Failure(message string) Result {
	if !strings.HasPrefix(message, ErrorMarker) {
		message = ErrorMarker + " " + message
	}
	return Result{Status: StatusError, Message: message}
}

// ErrorMarker prefixes every user facing error message.
const ErrorMarker = "❌"

// OK reports whether the result is a success.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// JSON renders the result as the payload sent back to the model.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return r.Message
	}
	return string(b)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeUnknownTool = "UNKNOWN_TOOL"
	CodePanic       = "PANIC"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	cause   error
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ToolError) Unwrap() error { return e.cause }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
