package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
)

// bedrockControlPlane is the subset of the Bedrock control-plane client
// (distinct from bedrockruntime, which only invokes models) this discovery
// path calls. Narrowed to ease testing with a fake.
type bedrockControlPlane interface {
	ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
}

var bedrockControlPlaneFactory = func(cfg aws.Config) bedrockControlPlane {
	return bedrock.NewFromConfig(cfg)
}

// modelDiscoveryCache holds cached ListFoundationModels results, since the
// Provider interface's Models() has no context to call AWS with directly.
// RefreshModels populates it; Models() reads whatever is cached, falling
// back to a short static list before the first successful refresh.
type modelDiscoveryCache struct {
	mu        sync.RWMutex
	models    []Model
	expiresAt time.Time
}

// RefreshModels queries Bedrock's ListFoundationModels for ACTIVE models
// whose provider is Anthropic, caching the result for ttl. Call this
// periodically (e.g. from a background refresh loop); Models() never
// blocks on network I/O.
func (p *BedrockProvider) RefreshModels(ctx context.Context, region string, ttl time.Duration) error {
	optFns := []func(*awscfg.LoadOptions) error{}
	if region != "" {
		optFns = append(optFns, awscfg.WithRegion(region))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return err
	}

	client := bedrockControlPlaneFactory(awsCfg)
	output, err := client.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return err
	}

	models := make([]Model, 0, len(output.ModelSummaries))
	for _, summary := range output.ModelSummaries {
		if !isActiveAnthropicModel(&summary) {
			continue
		}
		models = append(models, Model{
			ID:            aws.ToString(summary.ModelId),
			Name:          aws.ToString(summary.ModelName),
			ContextWindow: bedrockContextWindow(strings.ToLower(aws.ToString(summary.ModelId))),
		})
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	p.discovery.mu.Lock()
	p.discovery.models = models
	p.discovery.expiresAt = time.Now().Add(ttl)
	p.discovery.mu.Unlock()
	return nil
}

func (p *BedrockProvider) discoveredModels() []Model {
	p.discovery.mu.RLock()
	defer p.discovery.mu.RUnlock()
	if time.Now().After(p.discovery.expiresAt) || len(p.discovery.models) == 0 {
		return nil
	}
	out := make([]Model, len(p.discovery.models))
	copy(out, p.discovery.models)
	return out
}

func isActiveAnthropicModel(summary *types.FoundationModelSummary) bool {
	if summary == nil {
		return false
	}
	if summary.ModelLifecycle != nil {
		status := string(summary.ModelLifecycle.Status)
		if status != "" && status != "ACTIVE" {
			return false
		}
	}
	provider := strings.ToLower(aws.ToString(summary.ProviderName))
	modelID := strings.ToLower(aws.ToString(summary.ModelId))
	return provider == "anthropic" || strings.HasPrefix(modelID, "anthropic.")
}

// bedrockContextWindow maps known Anthropic-on-Bedrock model families to
// their context window, since ListFoundationModels doesn't report it.
func bedrockContextWindow(modelID string) int {
	if strings.Contains(modelID, "claude") {
		return 200000
	}
	return 0
}
