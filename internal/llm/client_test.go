// internal/llm/client_test.go
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faq-chatbot/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "gpt-4o",
		MaxTokens:   6000,
		Temperature: 0.1,
		Timeout:     5 * time.Second,
	}
}

func contentResponse(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func toolCallResponse(functionName string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role": "assistant",
					"tool_calls": []map[string]interface{}{
						{
							"id":   "call_1",
							"type": "function",
							"function": map[string]interface{}{
								"name":      functionName,
								"arguments": `{"question":"test"}`,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestClient_CreateChatCompletion_Content(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(contentResponse("The Starter plan costs 990 THB per month.")))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	completion, err := client.CreateChatCompletion(context.Background(), "synthesize", CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You answer FAQ questions."},
			{Role: "user", Content: "How much is the starter plan?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "The Starter plan costs 990 THB per month.", completion.Content)
	assert.Empty(t, completion.ToolCalls)

	// Config values flow onto the wire when the request leaves them unset.
	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, float64(6000), captured["max_tokens"])
	assert.InDelta(t, 0.1, captured["temperature"], 0.0001)
	_, hasToolChoice := captured["tool_choice"]
	assert.False(t, hasToolChoice, "tool_choice must be absent without tools")
}

func TestClient_CreateChatCompletion_ToolCalls(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(toolCallResponse("faq_sales")))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	params, _ := json.Marshal(map[string]interface{}{"type": "object"})
	completion, err := client.CreateChatCompletion(context.Background(), "classify", CompletionRequest{
		Messages: []Message{{Role: "user", Content: "pricing?"}},
		Tools: []Tool{
			{Type: "function", Function: ToolFunction{Name: "faq_sales", Parameters: params}},
		},
	})
	require.NoError(t, err)
	require.Len(t, completion.ToolCalls, 1)
	assert.Equal(t, "faq_sales", completion.ToolCalls[0].Function.Name)

	assert.Equal(t, "auto", captured["tool_choice"])
	tools, ok := captured["tools"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tools, 1)
}

func TestClient_CreateChatCompletion_PerRequestOverrides(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(contentResponse("ok")))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewNoOpLogger())

	_, err := client.CreateChatCompletion(context.Background(), "synthesize", CompletionRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   100,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), captured["max_tokens"])
	assert.InDelta(t, 0.7, captured["temperature"], 0.0001)
}

// ==========================
// Failure Tests
// ==========================

func TestClient_CreateChatCompletion_ProviderError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{
			name:   "server error with error body",
			status: http.StatusInternalServerError,
			body:   `{"error": {"message": "overloaded", "type": "server_error"}}`,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error": {"message": "bad key", "type": "invalid_request_error"}}`,
		},
		{
			name:   "ok status but empty choices",
			status: http.StatusOK,
			body:   `{"choices": []}`,
		},
		{
			name:   "ok status but garbage body",
			status: http.StatusOK,
			body:   `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL), logger.NewNoOpLogger())

			_, err := client.CreateChatCompletion(context.Background(), "classify", CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProviderFailed)
		})
	}
}

func TestClient_CreateChatCompletion_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte(contentResponse("too late")))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewClient(cfg, logger.NewNoOpLogger())

	_, err := client.CreateChatCompletion(context.Background(), "synthesize", CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

func TestClient_CreateChatCompletion_ConnectionRefused(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"), logger.NewNoOpLogger())

	_, err := client.CreateChatCompletion(context.Background(), "classify", CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
}
