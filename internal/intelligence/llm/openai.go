package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// OpenAICompleter talks to the OpenAI chat-completions API or any compatible
// gateway (Azure OpenAI, vLLM, Ollama's /v1 endpoint).
type OpenAICompleter struct {
	client *openai.Client
	model  string
	logger logging.Logger
}

// NewOpenAICompleter builds a completer from the llm config section.
func NewOpenAICompleter(cfg config.LLMConfig, log logging.Logger) (*OpenAICompleter, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeLLMNotConfigured, "llm.api_key or llm.base_url must be set")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	var oc openai.ClientConfig
	switch cfg.Provider {
	case "azure":
		oc = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.APIVersion != "" {
			oc.APIVersion = cfg.APIVersion
		}
	default:
		oc = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		oc.OrgID = cfg.Organization
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: log.Named("openai"),
	}, nil
}

// Complete sends one chat completion.
func (c *OpenAICompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	creq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.ResponseFormat == FormatJSONObject {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		c.logger.Debug("chat completion failed",
			logging.String("model", model),
			logging.String("operation", string(req.Operation)),
			logging.Err(err),
		)
		return nil, classifyError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeLLMInvalidResponse, "completion returned no choices")
	}

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
		Model: resp.Model,
	}, nil
}

// classifyError maps go-openai failures onto LLM_* codes and marks the
// transient ones retryable.
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, "chat completion cancelled")
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	code := errors.ErrCodeLLMRequestFailed
	if status == http.StatusTooManyRequests {
		code = errors.ErrCodeLLMRateLimited
	}
	wrapped := errors.Wrap(err, code, "chat completion failed")
	if status != 0 {
		wrapped = wrapped.WithDetail(fmt.Sprintf("status %d", status))
	}

	// status 0 means the request never got an HTTP answer
	if status == 0 || status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{Err: wrapped}
	}
	return wrapped
}

//Personal.AI order the ending
