package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentcore/agentcore/internal/backoff"
	"github.com/agentcore/agentcore/pkg/models"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxAttempts  int
}

// AnthropicProvider implements Provider against Anthropic's Messages API,
// using the SDK's native SSE streaming.
type AnthropicProvider struct {
	BaseProvider
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider builds an AnthropicProvider. APIKey is required.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		BaseProvider: NewBaseProvider("anthropic", cfg.MaxAttempts, backoff.Default()),
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *AnthropicProvider) SupportsTools() bool { return true }

func (p *AnthropicProvider) Models() []Model {
	return []Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextWindow: 200000},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextWindow: 200000},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ContextWindow: 200000},
	}
}

// Complete streams a completion. The returned channel is closed once the
// stream ends or ctx is cancelled; errors are delivered as a chunk with
// Error set rather than via the error return, except for request setup
// failures that never reach the network.
func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
		System:    systemBlocks(req.System),
		Messages:  toAnthropicMessages(req.Messages),
		Tools:     toAnthropicTools(req.Tools),
	}
	if req.ForceJSON {
		params.System = append(params.System, anthropic.TextBlockParam{
			Text: "Respond with a single JSON value and nothing else.",
		})
	}

	out := make(chan *CompletionChunk, 16)

	go func() {
		defer close(out)

		retryErr := p.Retry(ctx, p.isRetryable, func(attempt int) error {
			stream := p.client.Messages.NewStreaming(ctx, params)
			acc := anthropic.Message{}

			for stream.Next() {
				event := stream.Current()
				if err := acc.Accumulate(event); err != nil {
					return err
				}

				switch delta := event.AsAny().(type) {
				case anthropic.ContentBlockDeltaEvent:
					if text := delta.Delta.Text; text != "" {
						select {
						case out <- &CompletionChunk{Text: text}:
						case <-ctx.Done():
							return ctx.Err()
						}
					}
				}
			}
			if err := stream.Err(); err != nil {
				return p.classify(err)
			}

			for _, block := range acc.Content {
				if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
					args, _ := json.Marshal(tu.Input)
					select {
					case out <- &CompletionChunk{ToolCall: &models.ToolCall{ID: tu.ID, ToolName: tu.Name, Arguments: args}}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}

			select {
			case out <- &CompletionChunk{
				Done:         true,
				InputTokens:  int(acc.Usage.InputTokens),
				OutputTokens: int(acc.Usage.OutputTokens),
			}:
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

func (p *AnthropicProvider) isRetryable(err error) bool {
	var perr *ProviderError
	if e, ok := err.(*ProviderError); ok {
		perr = e
	} else {
		return false
	}
	return perr.Reason.IsRetryable()
}

func (p *AnthropicProvider) classify(err error) *ProviderError {
	reason := FailoverUnknown
	status := 0
	if apiErr, ok := err.(*anthropic.Error); ok {
		status = apiErr.StatusCode
		switch status {
		case http.StatusTooManyRequests:
			reason = FailoverRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			reason = FailoverAuth
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			reason = FailoverTimeout
		default:
			if status >= 500 {
				reason = FailoverServerError
			} else if status == http.StatusPaymentRequired {
				reason = FailoverBilling
			} else if status >= 400 {
				reason = FailoverInvalidRequest
			}
		}
	}
	return &ProviderError{Reason: reason, Provider: "anthropic", Status: status, Message: err.Error(), Cause: err}
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

func systemBlocks(system string) []anthropic.TextBlockParam {
	if system == "" {
		return nil
	}
	return []anthropic.TextBlockParam{{Text: system}}
}

func toAnthropicMessages(msgs []CompletionMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case models.RoleUser, models.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func toAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schemaToInputSchema(t.Schema),
			},
		})
	}
	return out
}

func schemaToInputSchema(schema models.Schema) anthropic.ToolInputSchemaParam {
	props := make(map[string]any, len(schema.Params))
	var required []string
	for _, p := range schema.Params {
		props[p.Name] = map[string]any{"type": jsonSchemaType(p.Type), "description": p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return anthropic.ToolInputSchemaParam{Properties: props, Required: required}
}

func jsonSchemaType(t models.ParamType) string {
	switch t {
	case models.ParamInteger:
		return "integer"
	case models.ParamBoolean:
		return "boolean"
	case models.ParamObject:
		return "object"
	case models.ParamArray:
		return "array"
	case models.ParamEnum:
		return "string"
	default:
		return "string"
	}
}
