package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"

	"github.com/at-ishikawa/actionnotes/internal/config"
	"github.com/at-ishikawa/actionnotes/internal/inference"
)

func newTestClient(serverURL string, maxRetryAttempts uint) *Client {
	return &Client{
		httpClient:       resty.New().SetBaseURL(serverURL),
		model:            "gpt-4o-mini",
		maxRetryAttempts: maxRetryAttempts,
		retryDelay:       time.Millisecond,
	}
}

func stringContent(s string) json.RawMessage {
	encoded, _ := json.Marshal(s)
	return encoded
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content json.RawMessage) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	require.NoError(t, json.NewEncoder(w).Encode(ChatCompletionResponse{
		ID:     "chatcmpl-123",
		Object: "chat.completion",
		Model:  "gpt-4o-mini",
		Choices: []Choice{
			{
				Message:      ChoiceMessage{Role: RoleAssistant, Content: content},
				FinishReason: "stop",
			},
		},
	}))
}

func TestClient_ExtractActionItems(t *testing.T) {
	tests := []struct {
		name              string
		maxRetryAttempts  uint
		mockServerHandler func(t *testing.T, w http.ResponseWriter, r *http.Request)

		wantResponse    inference.ExtractActionItemsResponse
		wantRequests    int32
		wantErrorString string
	}{
		{
			name: "JSON string content",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, stringContent(`{"action_items": ["Email Bob", "Book room"]}`))
			},
			wantResponse: inference.ExtractActionItemsResponse{ActionItems: []string{"Email Bob", "Book room"}},
			wantRequests: 1,
		},
		{
			name: "structured object content",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, json.RawMessage(`{"action_items": ["Email Bob"]}`))
			},
			wantResponse: inference.ExtractActionItemsResponse{ActionItems: []string{"Email Bob"}},
			wantRequests: 1,
		},
		{
			name: "missing action_items key",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, stringContent(`{"items": ["ignored"]}`))
			},
			wantResponse: inference.ExtractActionItemsResponse{ActionItems: []string{}},
			wantRequests: 1,
		},
		{
			name: "non-string elements are coerced and empty values dropped",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, stringContent(`{"action_items": ["Ship", 42, null, true, false, 0, {}, [], {"task": "x"}, ""]}`))
			},
			wantResponse: inference.ExtractActionItemsResponse{ActionItems: []string{"Ship", "42", "true", `{"task":"x"}`, ""}},
			wantRequests: 1,
		},
		{
			name: "invalid JSON content",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, stringContent(`invalid json content`))
			},
			wantRequests:    1,
			wantErrorString: "json.Unmarshal",
		},
		{
			name: "trailing garbage after JSON",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, stringContent(`{"action_items": ["a"]} junk`))
			},
			wantRequests:    1,
			wantErrorString: "unexpected data after the JSON value",
		},
		{
			name: "action_items is not an array",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, stringContent(`{"action_items": "Email Bob"}`))
			},
			wantRequests:    1,
			wantErrorString: "json.Unmarshal",
		},
		{
			name: "null content",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, nil)
			},
			wantRequests:    1,
			wantErrorString: "empty response content",
		},
		{
			name: "no choices",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
			},
			wantRequests:    1,
			wantErrorString: "empty response body or choices",
		},
		{
			name: "HTTP 500 error is not retried by default",
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": {"message": "Internal server error"}}`))
			},
			wantRequests:    1,
			wantErrorString: "response error 500",
		},
		{
			name:             "HTTP 500 error is retried when configured",
			maxRetryAttempts: 2,
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantRequests:    3,
			wantErrorString: "response error 503",
		},
		{
			name:             "HTTP 400 error is never retried",
			maxRetryAttempts: 2,
			mockServerHandler: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": {"message": "invalid schema"}}`))
			},
			wantRequests:    1,
			wantErrorString: "response error 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				tt.mockServerHandler(t, w, r)
			}))
			defer server.Close()

			client := newTestClient(server.URL, tt.maxRetryAttempts)
			defer func() {
				_ = client.Close()
			}()

			gotResponse, gotErr := client.ExtractActionItems(context.Background(), inference.ExtractActionItemsRequest{Text: "- Email Bob"})
			assert.Equal(t, tt.wantRequests, requests.Load())

			if tt.wantErrorString != "" {
				require.Error(t, gotErr)
				assert.Contains(t, gotErr.Error(), tt.wantErrorString)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.wantResponse, gotResponse)
		})
	}
}

func TestClient_ExtractActionItems_RequestBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.JSONEq(t, `0`, string(raw["temperature"]))
		assert.JSONEq(t, `"test-model"`, string(raw["model"]))

		var format ResponseFormat
		require.NoError(t, json.Unmarshal(raw["response_format"], &format))
		assert.Equal(t, "json_schema", format.Type)
		require.NotNil(t, format.JSONSchema)
		assert.Equal(t, "action_items", format.JSONSchema.Name)
		assert.True(t, format.JSONSchema.Strict)
		assert.JSONEq(t, string(actionItemsSchema), string(format.JSONSchema.Schema))

		var messages []Message
		require.NoError(t, json.Unmarshal(raw["messages"], &messages))
		require.Len(t, messages, 2)
		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Contains(t, messages[0].Content, "Any other clearly actionable items")
		assert.Equal(t, RoleUser, messages[1].Role)
		assert.Equal(t, "Extract action items from the following text:\n\nnext: Deploy", messages[1].Content)

		writeCompletion(t, w, stringContent(`{"action_items": ["Deploy"]}`))
	}))
	defer server.Close()

	client := NewClient(config.OpenAIConfig{
		APIKey:         "test-key",
		Model:          "test-model",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
	})
	defer func() {
		_ = client.Close()
	}()
	assert.Equal(t, "test-model", client.GetModel())

	got, err := client.ExtractActionItems(context.Background(), inference.ExtractActionItemsRequest{Text: "next: Deploy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Deploy"}, got.ActionItems)
}

func TestClient_ExtractActionItems_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(config.OpenAIConfig{
		Model:          "test-model",
		BaseURL:        server.URL,
		TimeoutSeconds: 1,
	})
	defer func() {
		_ = client.Close()
	}()

	_, err := client.ExtractActionItems(context.Background(), inference.ExtractActionItemsRequest{Text: "- Deploy"})
	require.Error(t, err)
}

func TestClient_ExtractActionItems_RateLimiterHonoursContext(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeCompletion(t, w, stringContent(`{"action_items": []}`))
	}))
	defer server.Close()

	client := NewClient(config.OpenAIConfig{
		Model:             "test-model",
		BaseURL:           server.URL,
		TimeoutSeconds:    5,
		RequestsPerSecond: 1,
	})
	require.NotNil(t, client.limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ExtractActionItems(ctx, inference.ExtractActionItemsRequest{Text: "- Deploy"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), requests.Load())
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: assert.AnError, want: false},
		{err: jsonError("json.Unmarshal(x) > invalid character"), want: true},
		{err: jsonError("dial tcp: connection refused"), want: true},
		{err: jsonError("response error 502: bad gateway"), want: true},
		{err: jsonError("response error 429: slow down"), want: true},
		{err: jsonError("response error 401: unauthorized"), want: false},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

type jsonError string

func (e jsonError) Error() string { return string(e) }

func TestDecodeActionItems(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "object",
			content: `{"action_items": ["a", 1.5]}`,
			want:    []string{"a", "1.5"},
		},
		{
			name:    "encoded string",
			content: `"{\"action_items\": [\"a\"]}"`,
			want:    []string{"a"},
		},
		{
			name:    "trailing whitespace is fine",
			content: `"{\"action_items\": [\"a\"]}\n  "`,
			want:    []string{"a"},
		},
		{
			name:    "trailing garbage in encoded string",
			content: `"{\"action_items\": [\"a\"]} junk"`,
			wantErr: true,
		},
		{
			name:    "trailing garbage after object",
			content: `{"action_items": ["a"]} trailing garbage`,
			wantErr: true,
		},
		{
			name:    "second JSON value",
			content: `{"action_items": ["a"]}{"action_items": ["b"]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeActionItems(json.RawMessage(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
