// Package llm provides the chat-completion abstraction consumed by the
// long-document pipeline, an OpenAI-compatible backend, and the decorators
// (retry, response cache, instrumentation) layered over it.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// ---------------------------------------------------------------------------
// Request / response
// ---------------------------------------------------------------------------

// ResponseFormat selects between free text and a JSON-object reply.
type ResponseFormat string

const (
	FormatText       ResponseFormat = "text"
	FormatJSONObject ResponseFormat = "json_object"
)

// Operation labels a call for metrics and logs.
type Operation string

const (
	OpStructure Operation = "structure"
	OpSegment   Operation = "segment"
	OpMerge     Operation = "merge"
	OpOther     Operation = "other"
)

// CompletionRequest is one system+user prompt exchange.
type CompletionRequest struct {
	SystemPrompt   string         `json:"system_prompt"`
	UserPrompt     string         `json:"user_prompt"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat ResponseFormat `json:"response_format"`
	// Model overrides the backend default when non-empty.
	Model     string    `json:"model,omitempty"`
	Operation Operation `json:"-"`
}

// Usage reports token consumption.  Backends that do not report usage leave
// it zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

// CompletionResponse carries the raw model output.
type CompletionResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Model   string `json:"model,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
}

// Completer is the only thing the pipeline knows about the model provider.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// ---------------------------------------------------------------------------
// Retry classification
// ---------------------------------------------------------------------------

// RetryableError marks a provider failure worth retrying (rate limit, 5xx,
// transport error).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// ---------------------------------------------------------------------------
// Output helpers
// ---------------------------------------------------------------------------

// StripCodeFence removes a surrounding ``` or ```json fence that some models
// wrap around JSON output.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSON strips code fences and unmarshals content into v.  Failures are
// reported as ErrCodeLLMInvalidResponse.
func DecodeJSON(content string, v interface{}) error {
	body := StripCodeFence(content)
	if body == "" {
		return errors.New(errors.ErrCodeLLMInvalidResponse, "empty model response")
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return errors.Wrap(err, errors.ErrCodeLLMInvalidResponse, "model response is not valid JSON")
	}
	return nil
}

//Personal.AI order the ending
