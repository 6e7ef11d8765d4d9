package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agronix/core"
	"github.com/hupe1980/agronix/model"
)

const completionWithToolCall = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "show_calendar_events", "arguments": "{\"date\":\"2025-06-10\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestModel_Generate(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionWithToolCall))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})

	req := model.Request{
		Instructions: "You are AgroNix.",
		Contents: []core.Content{
			core.NewTextContent(core.RoleUser, "what is planned?"),
			{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "call_0", Name: "search_calendar_events", Arguments: "{}"}}}},
			{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "call_0", Name: "search_calendar_events", Response: "🔍 Found 0 events for ''"}}}},
		},
		Tools: []model.ToolDefinition{{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:       "show_calendar_events",
				Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
			},
		}},
	}

	ctx := context.Background()
	respCh, errCh := m.Generate(ctx, req)
	resp, err := model.Collect(ctx, respCh, errCh)
	require.NoError(t, err)

	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "show_calendar_events", calls[0].Name)
	assert.JSONEq(t, `{"date":"2025-06-10"}`, calls[0].Arguments)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	messages := body["messages"].([]any)
	require.Len(t, messages, 4)
	roles := make([]string, len(messages))
	for i, msg := range messages {
		roles[i] = msg.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)
	assert.Equal(t, "call_0", messages[3].(map[string]any)["tool_call_id"])
	assert.Len(t, body["tools"], 1)
}

func TestModel_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})

	ctx := context.Background()
	respCh, errCh := m.Generate(ctx, model.Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")}})
	_, err := model.Collect(ctx, respCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestModel_Info(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test"; o.Model = "gpt-4o" })
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai", SupportsTools: true}, m.Info())
}
