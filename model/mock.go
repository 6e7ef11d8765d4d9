package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agronix/core"
)

// MockStep produces one scripted generation.
type MockStep func(ctx context.Context, req Request) (Response, error)

// MockModel is a lightweight in-memory Model useful for tests and offline use.
// Scripted steps are consumed in FIFO order; once exhausted the model answers
// from the canned prompt table or echoes the last user text.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	script    []MockStep
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends scripted responses.
func (m *MockModel) Enqueue(resps ...Response) {
	for _, r := range resps {
		m.EnqueueStep(func(context.Context, Request) (Response, error) { return r, nil })
	}
}

// EnqueueError appends a scripted failure.
func (m *MockModel) EnqueueError(err error) {
	m.EnqueueStep(func(context.Context, Request) (Response, error) { return Response{}, err })
}

// EnqueueStep appends an arbitrary scripted step.
func (m *MockModel) EnqueueStep(step MockStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, step)
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var step MockStep
	if len(m.script) > 0 {
		step = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if step != nil {
			resp, err := step(ctx, req)
			if err != nil {
				errCh <- err
				return
			}
			respCh <- resp
			return
		}

		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}

		respCh <- TextResponse(m.cannedAnswer(lastUserText(req.Contents)))
	}()

	return respCh, errCh
}

func (m *MockModel) cannedAnswer(input string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if full, ok := m.responses[input]; ok {
		return full
	}
	return fmt.Sprintf("Mock response to: %s", input)
}

func lastUserText(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == core.RoleUser {
			return contents[i].Text()
		}
	}
	return ""
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// TextResponse builds a final assistant response with a single text part.
func TextResponse(text string) Response {
	return Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
	}
}

// ToolCallResponse builds a final assistant response requesting the given calls.
func ToolCallResponse(calls ...core.FunctionCall) Response {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	}
}
