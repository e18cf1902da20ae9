package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
)

type mockControlPlane struct {
	summaries []types.FoundationModelSummary
	err       error
}

func (m *mockControlPlane) ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &bedrock.ListFoundationModelsOutput{ModelSummaries: m.summaries}, nil
}

func withMockControlPlane(t *testing.T, mock *mockControlPlane) {
	t.Helper()
	original := bedrockControlPlaneFactory
	bedrockControlPlaneFactory = func(cfg aws.Config) bedrockControlPlane { return mock }
	t.Cleanup(func() { bedrockControlPlaneFactory = original })
}

func TestRefreshModelsFiltersToActiveAnthropicModels(t *testing.T) {
	withMockControlPlane(t, &mockControlPlane{summaries: []types.FoundationModelSummary{
		{
			ModelId:        aws.String("anthropic.claude-3-5-sonnet-20241022-v2:0"),
			ModelName:      aws.String("Claude 3.5 Sonnet"),
			ProviderName:   aws.String("Anthropic"),
			ModelLifecycle: &types.FoundationModelLifecycle{Status: types.FoundationModelLifecycleStatusActive},
		},
		{
			ModelId:      aws.String("meta.llama3-70b-instruct-v1:0"),
			ModelName:    aws.String("Llama 3 70B"),
			ProviderName: aws.String("Meta"),
		},
		{
			ModelId:        aws.String("anthropic.claude-instant-v1"),
			ModelName:      aws.String("Claude Instant (legacy)"),
			ProviderName:   aws.String("Anthropic"),
			ModelLifecycle: &types.FoundationModelLifecycle{Status: types.FoundationModelLifecycleStatusLegacy},
		},
	}})

	p := &BedrockProvider{}
	if err := p.RefreshModels(context.Background(), "us-east-1", time.Minute); err != nil {
		t.Fatalf("RefreshModels() error = %v", err)
	}

	models := p.Models()
	if len(models) != 1 {
		t.Fatalf("expected 1 active Anthropic model, got %d: %+v", len(models), models)
	}
	if models[0].ID != "anthropic.claude-3-5-sonnet-20241022-v2:0" {
		t.Fatalf("unexpected model id: %s", models[0].ID)
	}
	if models[0].ContextWindow != 200000 {
		t.Fatalf("expected a 200000 context window, got %d", models[0].ContextWindow)
	}
}

func TestModelsFallsBackBeforeFirstRefresh(t *testing.T) {
	p := &BedrockProvider{}
	models := p.Models()
	if len(models) == 0 {
		t.Fatal("expected a non-empty static fallback list")
	}
}

func TestModelsFallsBackAfterCacheExpires(t *testing.T) {
	withMockControlPlane(t, &mockControlPlane{summaries: []types.FoundationModelSummary{
		{
			ModelId:        aws.String("anthropic.claude-3-5-sonnet-20241022-v2:0"),
			ModelName:      aws.String("Claude 3.5 Sonnet"),
			ProviderName:   aws.String("Anthropic"),
			ModelLifecycle: &types.FoundationModelLifecycle{Status: types.FoundationModelLifecycleStatusActive},
		},
	}})

	p := &BedrockProvider{}
	if err := p.RefreshModels(context.Background(), "us-east-1", time.Nanosecond); err != nil {
		t.Fatalf("RefreshModels() error = %v", err)
	}
	time.Sleep(time.Millisecond)

	models := p.Models()
	if len(models) != 2 {
		t.Fatalf("expected the static fallback (2 models) once the cache expires, got %d", len(models))
	}
}

func TestRefreshModelsPropagatesAWSError(t *testing.T) {
	withMockControlPlane(t, &mockControlPlane{err: errors.New("access denied")})

	p := &BedrockProvider{}
	if err := p.RefreshModels(context.Background(), "us-east-1", time.Minute); err == nil {
		t.Fatal("expected an error to propagate")
	}
}
