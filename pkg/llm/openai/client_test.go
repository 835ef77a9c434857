package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletions поднимает сервер, который запоминает запрос и отвечает body.
func fakeCompletions(t *testing.T, body string, got *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		modelDef config.ModelDef
	}{
		{"minimal config", config.ModelDef{APIKey: "test-key", ModelName: "gpt-4o"}},
		{"with custom base url", config.ModelDef{APIKey: "test-key", ModelName: "glm-4", BaseURL: "https://api.z.ai/v4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.modelDef)
			require.NotNil(t, client)
			assert.Equal(t, tt.modelDef.ModelName, client.model)
			assert.NotNil(t, client.api)
		})
	}
}

func TestGenerate_ToolCallRoundTrip(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := fakeCompletions(t, `{
		"id": "chatcmpl-1",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "weather", "arguments": "{\"input\":\"Paris\"}"}
				}]
			}
		}]
	}`, &got)

	client := NewClient(config.ModelDef{APIKey: "test-key", ModelName: "gpt-4o", BaseURL: srv.URL + "/v1", MaxTokens: 500})
	defs := []tools.ToolDefinition{{
		Name:        "weather",
		Description: "Current weather",
		Parameters:  tools.InputSchema("City name"),
	}}

	msg, err := client.Generate(context.Background(),
		[]llm.Message{llm.NewSystemMessage("sys"), llm.NewUserMessage("weather in Paris?")},
		defs, llm.WithTemperature(0))
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, msg.Role)
	require.True(t, msg.HasToolCalls())
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "weather", msg.ToolCalls[0].Name)
	assert.JSONEq(t, `{"input":"Paris"}`, msg.ToolCalls[0].Args)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "weather", got.Tools[0].Function.Name)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("no choices", func(t *testing.T) {
		var got openai.ChatCompletionRequest
		srv := fakeCompletions(t, `{"id": "x", "choices": []}`, &got)
		client := NewClient(config.ModelDef{APIKey: "test-key", ModelName: "gpt-4o", BaseURL: srv.URL + "/v1"})

		_, err := client.Generate(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no choices")
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
		}))
		t.Cleanup(srv.Close)
		client := NewClient(config.ModelDef{APIKey: "test-key", ModelName: "gpt-4o", BaseURL: srv.URL + "/v1"})

		_, err := client.Generate(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "openai api error")
	})
}

func TestGenerate_ModelTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewClient(config.ModelDef{
		APIKey: "k", ModelName: "gpt-4o", BaseURL: srv.URL + "/v1", Timeout: 50 * time.Millisecond,
	})

	start := time.Now()
	_, err := client.Generate(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "model timeout bounds the request")
}

func TestBuildRequest_Options(t *testing.T) {
	client := NewClient(config.ModelDef{APIKey: "k", ModelName: "gpt-4o", Temperature: 0.7, MaxTokens: 100})

	req := client.buildRequest([]llm.Message{llm.NewUserMessage("hi")},
		llm.WithModel("gpt-4o-mini"),
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(42))

	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	assert.Equal(t, 42, req.MaxTokens)
	assert.Empty(t, req.Tools, "no definitions, no tools")
}

func TestMapToOpenAI(t *testing.T) {
	t.Run("vision message", func(t *testing.T) {
		msg := mapToOpenAI(llm.Message{
			Role:    llm.RoleUser,
			Content: "Read the text",
			Images:  []string{"data:image/jpeg;base64,AAAA"},
		})
		assert.Empty(t, msg.Content)
		require.Len(t, msg.MultiContent, 2)
		assert.Equal(t, openai.ChatMessagePartTypeText, msg.MultiContent[0].Type)
		assert.Equal(t, "data:image/jpeg;base64,AAAA", msg.MultiContent[1].ImageURL.URL)
	})

	t.Run("tool result", func(t *testing.T) {
		msg := mapToOpenAI(llm.Message{Role: llm.RoleTool, Content: "18°C", ToolCallID: "call_1"})
		assert.Equal(t, "tool", msg.Role)
		assert.Equal(t, "call_1", msg.ToolCallID)
		assert.Equal(t, "18°C", msg.Content)
	})

	t.Run("assistant tool calls", func(t *testing.T) {
		msg := mapToOpenAI(llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "search", Args: `{"input":"go"}`}},
		})
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, openai.ToolTypeFunction, msg.ToolCalls[0].Type)
		assert.Equal(t, "search", msg.ToolCalls[0].Function.Name)
	})
}
