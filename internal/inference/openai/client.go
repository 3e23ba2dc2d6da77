package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/at-ishikawa/actionnotes/internal/config"
	"github.com/at-ishikawa/actionnotes/internal/inference"
)

type Client struct {
	httpClient       *resty.Client
	model            string
	maxRetryAttempts uint
	retryDelay       time.Duration
	limiter          *rate.Limiter
}

// NewClient creates a client for an OpenAI-compatible chat completions API.
func NewClient(cfg config.OpenAIConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient:       client,
		model:            cfg.Model,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		retryDelay:       500 * time.Millisecond,
		limiter:          limiter,
	}
}

func (client Client) Close() error {
	return client.httpClient.Close()
}

// GetModel returns the model name configured for this client
func (client Client) GetModel() string {
	return client.model
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage keeps Content raw: some compatible servers return the
// structured reply as an object instead of a JSON-encoded string.
type ChoiceMessage struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

const actionItemsSystemPrompt = `You are a helpful assistant that extracts action items from text.
An action item is a specific task, todo, or actionable item that needs to be completed.
Extract all action items from the given text, including:
- Items in bullet lists (with -, *, •, or numbers)
- Items prefixed with keywords like "todo:", "action:", "next:"
- Items with checkboxes like [ ] or [todo]
- Imperative sentences that describe tasks to be done
- Any other clearly actionable items

Return only the action items, cleaned of their prefixes and formatting.
Each action item should be a clear, concise description of what needs to be done.
If there are no action items, return an empty array.`

var actionItemsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "action_items": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["action_items"],
  "additionalProperties": false
}`)

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	// Truncated replies
	if strings.Contains(errStr, "json.Unmarshal") || strings.Contains(errStr, "unexpected end of JSON input") {
		return true
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") || strings.Contains(errStr, "Client.Timeout exceeded") {
		return true
	}
	if strings.Contains(errStr, "response error 5") || strings.Contains(errStr, "response error 429") {
		return true
	}
	return false
}

// ExtractActionItems implements the inference.Client interface
func (client *Client) ExtractActionItems(
	ctx context.Context,
	params inference.ExtractActionItemsRequest,
) (inference.ExtractActionItemsResponse, error) {
	var result inference.ExtractActionItemsResponse
	if err := retry.Do(
		func() error {
			response, err := client.extractActionItems(ctx, params)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.Delay(client.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Default().InfoContext(ctx, "OpenAI API call failed",
				"attempt", n+1,
				"maxAttempts", client.maxRetryAttempts+1,
				"error", err,
			)
		}),
	); err != nil {
		return inference.ExtractActionItemsResponse{}, err
	}
	return result, nil
}

func (client *Client) getRequestBody(args inference.ExtractActionItemsRequest) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:       client.model,
		Temperature: 0,
		Messages: []Message{
			{Role: RoleSystem, Content: actionItemsSystemPrompt},
			{Role: RoleUser, Content: "Extract action items from the following text:\n\n" + args.Text},
		},
		ResponseFormat: &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   "action_items",
				Strict: true,
				Schema: actionItemsSchema,
			},
		},
	}
}

func (client *Client) extractActionItems(
	ctx context.Context,
	args inference.ExtractActionItemsRequest,
) (inference.ExtractActionItemsResponse, error) {
	if client.limiter != nil {
		if err := client.limiter.Wait(ctx); err != nil {
			return inference.ExtractActionItemsResponse{}, fmt.Errorf("limiter.Wait > %w", err)
		}
	}

	requestBody := client.getRequestBody(args)
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return inference.ExtractActionItemsResponse{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return inference.ExtractActionItemsResponse{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody, ok := response.Result().(*ChatCompletionResponse)
	if !ok || responseBody == nil || len(responseBody.Choices) == 0 {
		return inference.ExtractActionItemsResponse{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := responseBody.Choices[0].Message.Content
	slog.Default().DebugContext(ctx, "openai response content",
		"model", responseBody.Model,
		"content", string(content),
		"usage", responseBody.Usage,
	)

	items, err := decodeActionItems(content)
	if err != nil {
		return inference.ExtractActionItemsResponse{}, err
	}
	return inference.ExtractActionItemsResponse{ActionItems: items}, nil
}

// decodeActionItems reads the action_items array out of a reply that is either a
// JSON-encoded string or an object. A missing key yields no items.
func decodeActionItems(content json.RawMessage) ([]string, error) {
	payload := bytes.TrimSpace(content)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, fmt.Errorf("empty response content")
	}
	if payload[0] == '"' {
		var encoded string
		if err := json.Unmarshal(payload, &encoded); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(%s) > %w", payload, err)
		}
		payload = []byte(encoded)
	}

	var decoded struct {
		ActionItems []any `json:"action_items"`
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w", payload, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("json.Unmarshal(%s) > unexpected data after the JSON value", payload)
	}

	items := make([]string, 0, len(decoded.ActionItems))
	for _, value := range decoded.ActionItems {
		if text, ok := toText(value); ok {
			items = append(items, text)
		}
	}
	return items, nil
}

// toText turns one array element into item text. Null, false, zero and empty
// values carry no task and are dropped.
func toText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return "", false
		}
		return v.String(), true
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case map[string]any:
		if len(v) == 0 {
			return "", false
		}
	case []any:
		if len(v) == 0 {
			return "", false
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}
