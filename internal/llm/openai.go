package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentcore/agentcore/internal/backoff"
	"github.com/agentcore/agentcore/pkg/models"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxAttempts  int
}

// OpenAIProvider implements Provider against the chat-completions API,
// using streaming responses and OpenAI-style function calling.
type OpenAIProvider struct {
	BaseProvider
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider builds an OpenAIProvider. APIKey is required.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openai.GPT4o
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		BaseProvider: NewBaseProvider("openai", cfg.MaxAttempts, backoff.Default()),
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) Models() []Model {
	return []Model{
		{ID: openai.GPT4o, Name: "GPT-4o", ContextWindow: 128000},
		{ID: openai.GPT4oMini, Name: "GPT-4o mini", ContextWindow: 128000},
		{ID: openai.O3Mini, Name: "o3-mini", ContextWindow: 200000},
	}
}

// Complete streams a chat completion, surfacing text deltas as they
// arrive; function_call arguments are accumulated and sent as a single
// tool call chunk once the stream ends.
func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  toOpenAIMessages(req.System, req.Messages),
		Tools:     toOpenAITools(req.Tools),
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}
	if req.ForceJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	out := make(chan *CompletionChunk, 16)

	go func() {
		defer close(out)

		retryErr := p.Retry(ctx, p.isRetryable, func(attempt int) error {
			stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
			if err != nil {
				return p.classify(err)
			}
			defer stream.Close()

			var toolName string
			var toolArgs string
			var toolCallID string
			var usage openai.Usage

			for {
				resp, err := stream.Recv()
				if errors.Is(err, context.Canceled) {
					return err
				}
				if err != nil {
					if isStreamEOF(err) {
						break
					}
					return p.classify(err)
				}
				if resp.Usage != nil {
					usage = *resp.Usage
				}
				if len(resp.Choices) == 0 {
					continue
				}
				delta := resp.Choices[0].Delta
				if delta.Content != "" {
					select {
					case out <- &CompletionChunk{Text: delta.Content}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				for _, tc := range delta.ToolCalls {
					if tc.ID != "" {
						toolCallID = tc.ID
					}
					if tc.Function.Name != "" {
						toolName = tc.Function.Name
					}
					toolArgs += tc.Function.Arguments
				}
			}

			if toolName != "" {
				select {
				case out <- &CompletionChunk{ToolCall: &models.ToolCall{ID: toolCallID, ToolName: toolName, Arguments: json.RawMessage(toolArgs)}}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			select {
			case out <- &CompletionChunk{Done: true, InputTokens: usage.PromptTokens, OutputTokens: usage.CompletionTokens}:
			case <-ctx.Done():
			}
			return nil
		})

		if retryErr != nil {
			select {
			case out <- &CompletionChunk{Error: retryErr, Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func isStreamEOF(err error) bool {
	return err.Error() == "EOF"
}

func (p *OpenAIProvider) isRetryable(err error) bool {
	if perr, ok := err.(*ProviderError); ok {
		return perr.Reason.IsRetryable()
	}
	return false
}

func (p *OpenAIProvider) classify(err error) *ProviderError {
	reason := FailoverUnknown
	status := 0
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
		switch status {
		case http.StatusTooManyRequests:
			reason = FailoverRateLimit
		case http.StatusUnauthorized:
			reason = FailoverAuth
		case http.StatusPaymentRequired:
			reason = FailoverBilling
		default:
			if status >= 500 {
				reason = FailoverServerError
			} else if status >= 400 {
				reason = FailoverInvalidRequest
			}
		}
	}
	return &ProviderError{Reason: reason, Provider: "openai", Status: status, Message: err.Error(), Cause: err}
}

func toOpenAIMessages(system string, msgs []CompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]any, len(t.Schema.Params))
		var required []string
		for _, p := range t.Schema.Params {
			props[p.Name] = map[string]any{"type": jsonSchemaType(p.Type), "description": p.Description}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": props,
					"required":   required,
				},
			},
		})
	}
	return out
}
