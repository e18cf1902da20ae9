package llm

import (
	"context"
	"encoding/json"
	"fmt"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentcore/agentcore/internal/backoff"
)

// BedrockConfig configures a BedrockProvider. AccessKeyID/SecretAccessKey
// are optional - when both are set they override the SDK's default
// credential chain with a static credential pair; otherwise credentials
// come from the environment, shared config, or an EC2/ECS role.
type BedrockConfig struct {
	Region          string
	DefaultModel    string
	MaxAttempts     int
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// bedrockRuntime is the subset of the SDK client this provider calls,
// narrowed to ease testing with a fake.
type bedrockRuntime interface {
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// BedrockProvider implements Provider against AWS Bedrock's
// InvokeModelWithResponseStream, using the Anthropic-on-Bedrock wire
// format (the default, since every other provider in this package already
// covers native Anthropic and native OpenAI).
type BedrockProvider struct {
	BaseProvider
	client       bedrockRuntime
	defaultModel string
	discovery    modelDiscoveryCache
}

// NewBedrockProvider builds a BedrockProvider, loading AWS credentials and
// region from the default credential chain (environment, shared config,
// EC2/ECS role) via aws-sdk-go-v2/config.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	optFns := []func(*awscfg.LoadOptions) error{}
	if cfg.Region != "" {
		optFns = append(optFns, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
		)))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: loading aws config: %w", err)
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	return &BedrockProvider{
		BaseProvider: NewBaseProvider("bedrock", cfg.MaxAttempts, backoff.Default()),
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *BedrockProvider) SupportsTools() bool { return true }

// Models returns the last set of models RefreshModels discovered via
// Bedrock's ListFoundationModels, or a static fallback list before the
// first successful refresh (or once the cache expires).
func (p *BedrockProvider) Models() []Model {
	if discovered := p.discoveredModels(); discovered != nil {
		return discovered
	}
	return []Model{
		{ID: "anthropic.claude-3-5-sonnet-20241022-v2:0", Name: "Claude 3.5 Sonnet (Bedrock)", ContextWindow: 200000},
		{ID: "anthropic.claude-3-haiku-20240307-v1:0", Name: "Claude 3 Haiku (Bedrock)", ContextWindow: 200000},
	}
}

type bedrockAnthropicBody struct {
	AnthropicVersion string                 `json:"anthropic_version"`
	MaxTokens        int                    `json:"max_tokens"`
	System           string                 `json:"system,omitempty"`
	Messages         []bedrockMessage       `json:"messages"`
	Tools            []bedrockTool          `json:"tools,omitempty"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type bedrockStreamChunk struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete invokes the model with response streaming and translates
// Bedrock's event stream chunks into CompletionChunks.
func (p *BedrockProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body := bedrockAnthropicBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokensOrDefault(req.MaxTokens),
		System:           req.System,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, bedrockMessage{Role: string(m.Role), Content: m.Content})
	}
	for _, t := range req.Tools {
		props := make(map[string]any, len(t.Schema.Params))
		for _, param := range t.Schema.Params {
			props[param.Name] = map[string]any{"type": jsonSchemaType(param.Type)}
		}
		body.Tools = append(body.Tools, bedrockTool{Name: t.Name, Description: t.Description, InputSchema: map[string]any{"type": "object", "properties": props}})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out := make(chan *CompletionChunk, 16)

	go func() {
		defer close(out)

		retryErr := p.Retry(ctx, p.isRetryable, func(attempt int) error {
			resp, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
				ModelId:     &model,
				ContentType: strPtr("application/json"),
				Body:        payload,
			})
			if err != nil {
				return p.classify(err)
			}

			stream := resp.GetStream()
			defer stream.Close()

			var inputTokens, outputTokens int
			for event := range stream.Events() {
				chunkEvent, ok := event.(*types.ResponseStreamMemberChunk)
				if !ok {
					continue
				}
				var chunk bedrockStreamChunk
				if err := json.Unmarshal(chunkEvent.Value.Bytes, &chunk); err != nil {
					continue
				}
				if chunk.Delta.Text != "" {
					select {
					case out <- &CompletionChunk{Text: chunk.Delta.Text}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				if chunk.Usage.InputTokens > 0 {
					inputTokens = chunk.Usage.InputTokens
				}
				if chunk.Usage.OutputTokens > 0 {
					outputTokens = chunk.Usage.OutputTokens
				}
			}
			if err := stream.Err(); err != nil {
				return p.classify(err)
			}

			select {
			case out <- &CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}:
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

func strPtr(s string) *string { return &s }

func (p *BedrockProvider) isRetryable(err error) bool {
	if perr, ok := err.(*ProviderError); ok {
		return perr.Reason.IsRetryable()
	}
	return false
}

func (p *BedrockProvider) classify(err error) *ProviderError {
	reason := FailoverUnknown
	msg := err.Error()
	switch {
	case contains(msg, "ThrottlingException"):
		reason = FailoverRateLimit
	case contains(msg, "AccessDeniedException"):
		reason = FailoverAuth
	case contains(msg, "ModelTimeoutException"):
		reason = FailoverTimeout
	case contains(msg, "ModelNotReadyException"):
		reason = FailoverModelUnavailable
	case contains(msg, "InternalServerException"):
		reason = FailoverServerError
	}
	return &ProviderError{Reason: reason, Provider: "bedrock", Message: msg, Cause: err}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
