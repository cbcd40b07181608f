package driving

import "github.com/custodia-labs/sercha-pdf/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves current settings from configuration over defaults.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// SetActiveDocument persists the active document id.
	SetActiveDocument(docID string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// ValidateEmbeddingConfig checks the embedding provider is reachable.
	ValidateEmbeddingConfig() error

	// Validate checks the resolved settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
