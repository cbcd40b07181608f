// Package ai provides factory functions for creating embedding adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/sercha-pdf/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-pdf/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// InitResult contains the result of embedding initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if fell back to offline hashing.
}

// Close releases the embedding service.
func (r *InitResult) Close() error {
	if r.EmbeddingService != nil {
		return r.EmbeddingService.Close()
	}
	return nil
}

// InitEmbedding creates the configured embedding service. A provider that
// cannot be constructed falls back to offline hashing so that commands
// not needing similarity search keep working; indices built with another
// model are then reported as mismatched on load.
func InitEmbedding(settings *domain.EmbeddingSettings) *InitResult {
	svc, err := CreateEmbeddingService(settings)
	if err == nil {
		return &InitResult{EmbeddingService: svc}
	}

	dims := 0
	if settings != nil {
		dims = settings.Dimensions
	}
	return &InitResult{
		EmbeddingService: hashing.NewEmbeddingService(dims),
		Warnings: []string{
			fmt.Sprintf("%v. Run 'sercha-pdf settings embedding' to fix", err),
		},
		FellBack: true,
	}
}

// CreateEmbeddingService creates the embedding service selected by settings.
// Nil settings or an empty provider select offline hashing.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return hashing.NewEmbeddingService(0), nil
	}

	switch settings.Provider {
	case domain.AIProviderHashing, "":
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama, openai or hashing",
			domain.ErrEmbeddingUnavailable)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}

// ValidateEmbeddingConfig validates an embedding configuration by creating
// a service and pinging it. The settings command calls it after saving.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}
