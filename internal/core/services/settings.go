package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyFigMinSegments    = "figures.min_segments"
	keyFigMinArea        = "figures.min_area"
	keyFigAreaFrac       = "figures.area_frac"
	keyFigMinStroke      = "figures.min_stroke"
	keyFigMergeIoU       = "figures.merge_iou_thresh"
	keyFigMaxWordsInside = "figures.max_words_inside"
	keyFigCaptionTokens  = "figures.caption_tokens"
	keyFigCaptionBelow   = "figures.caption_below_px"
	keyFigCaptionAbove   = "figures.caption_above_px"
	keyFigStrictCaptions = "figures.strict_captions"
	keyFigPad            = "figures.pad_px"
	keyFigDPI            = "figures.dpi"

	keyChunkSize    = "chunking.size"
	keyChunkOverlap = "chunking.overlap"
	keyChunkStrict  = "chunking.strict"

	keyRetrievalLimit         = "retrieval.default_limit"
	keyRetrievalChunkLexical  = "retrieval.chunk_weights.lexical"
	keyRetrievalChunkVector   = "retrieval.chunk_weights.vector"
	keyRetrievalCapLexical    = "retrieval.caption_weights.lexical"
	keyRetrievalCapVector     = "retrieval.caption_weights.vector"
	keyRegistryMaxSessions    = "registry.max_sessions"
	keyIngestWorkers          = "ingest.workers"
	keySessionActiveDocument  = "session.active_document"
	keyEmbedProvider          = "embedding.provider"
	keyEmbedModel             = "embedding.model"
	keyEmbedBaseURL           = "embedding.base_url"
	keyEmbedAPIKey            = "embedding.api_key"
	keyEmbedDimensions        = "embedding.dimensions"
	keyVectorBackend          = "vector.backend"
	keyVectorQdrantURL        = "vector.qdrant_url"
	keyVectorQdrantAPIKey     = "vector.qdrant_api_key"
	keyVectorCollectionPrefix = "vector.collection_prefix"
	keyUploadProvider         = "uploads.provider"
	keyUploadAPIKey           = "uploads.api_key"
	keyUploadBaseURL          = "uploads.base_url"
	keyUploadTTL              = "uploads.ttl"
)

var defaultEmbeddingModels = domain.DefaultEmbeddingModels()

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithAIValidator enables provider connectivity checks.
func WithAIValidator(v driven.AIConfigValidator) SettingsOption {
	return func(s *SettingsService) {
		s.validator = v
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{configStore: configStore}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	tokens := s.configStore.GetStringSlice(keyFigCaptionTokens)
	if len(tokens) == 0 {
		tokens = defaults.Figures.CaptionTokens
	}

	settings := &domain.Settings{
		Figures: domain.FigureSettings{
			MinSegments:    s.getInt(keyFigMinSegments, defaults.Figures.MinSegments),
			MinArea:        s.getFloat(keyFigMinArea, defaults.Figures.MinArea),
			AreaFrac:       s.getFloat(keyFigAreaFrac, defaults.Figures.AreaFrac),
			MinStroke:      s.getFloat(keyFigMinStroke, defaults.Figures.MinStroke),
			MergeIoUThresh: s.getFloat(keyFigMergeIoU, defaults.Figures.MergeIoUThresh),
			MaxWordsInside: s.getInt(keyFigMaxWordsInside, defaults.Figures.MaxWordsInside),
			CaptionTokens:  tokens,
			CaptionBelowPx: s.getFloat(keyFigCaptionBelow, defaults.Figures.CaptionBelowPx),
			CaptionAbovePx: s.getFloat(keyFigCaptionAbove, defaults.Figures.CaptionAbovePx),
			StrictCaptions: s.getBool(keyFigStrictCaptions, defaults.Figures.StrictCaptions),
			PadPx:          s.getFloat(keyFigPad, defaults.Figures.PadPx),
			DPI:            s.getInt(keyFigDPI, defaults.Figures.DPI),
		},
		Chunking: domain.ChunkSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
			Strict:  s.getBool(keyChunkStrict, defaults.Chunking.Strict),
		},
		Retrieval: domain.RetrievalSettings{
			DefaultLimit: s.getInt(keyRetrievalLimit, defaults.Retrieval.DefaultLimit),
			ChunkWeights: domain.HybridWeights{
				Lexical: s.getFloat(keyRetrievalChunkLexical, defaults.Retrieval.ChunkWeights.Lexical),
				Vector:  s.getFloat(keyRetrievalChunkVector, defaults.Retrieval.ChunkWeights.Vector),
			},
			CaptionWeights: domain.HybridWeights{
				Lexical: s.getFloat(keyRetrievalCapLexical, defaults.Retrieval.CaptionWeights.Lexical),
				Vector:  s.getFloat(keyRetrievalCapVector, defaults.Retrieval.CaptionWeights.Vector),
			},
		},
		Registry: domain.RegistrySettings{
			MaxSessions: s.getInt(keyRegistryMaxSessions, defaults.Registry.MaxSessions),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
		},
		Vector: domain.VectorSettings{
			Backend:          s.getBackend(defaults.Vector.Backend),
			QdrantURL:        s.getString(keyVectorQdrantURL, defaults.Vector.QdrantURL),
			QdrantAPIKey:     s.configStore.GetString(keyVectorQdrantAPIKey),
			CollectionPrefix: s.getString(keyVectorCollectionPrefix, defaults.Vector.CollectionPrefix),
		},
		Uploads: domain.UploadSettings{
			Provider: s.getProvider(keyUploadProvider, defaults.Uploads.Provider),
			APIKey:   s.configStore.GetString(keyUploadAPIKey),
			BaseURL:  s.configStore.GetString(keyUploadBaseURL),
			TTL:      s.getDuration(keyUploadTTL, defaults.Uploads.TTL),
		},
		Ingest: domain.IngestSettings{
			Workers: s.getInt(keyIngestWorkers, defaults.Ingest.Workers),
		},
		ActiveDocument: s.configStore.GetString(keySessionActiveDocument),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyFigMinSegments, settings.Figures.MinSegments},
		{keyFigMinArea, settings.Figures.MinArea},
		{keyFigAreaFrac, settings.Figures.AreaFrac},
		{keyFigMinStroke, settings.Figures.MinStroke},
		{keyFigMergeIoU, settings.Figures.MergeIoUThresh},
		{keyFigMaxWordsInside, settings.Figures.MaxWordsInside},
		{keyFigCaptionTokens, settings.Figures.CaptionTokens},
		{keyFigCaptionBelow, settings.Figures.CaptionBelowPx},
		{keyFigCaptionAbove, settings.Figures.CaptionAbovePx},
		{keyFigStrictCaptions, settings.Figures.StrictCaptions},
		{keyFigPad, settings.Figures.PadPx},
		{keyFigDPI, settings.Figures.DPI},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyChunkStrict, settings.Chunking.Strict},
		{keyRetrievalLimit, settings.Retrieval.DefaultLimit},
		{keyRetrievalChunkLexical, settings.Retrieval.ChunkWeights.Lexical},
		{keyRetrievalChunkVector, settings.Retrieval.ChunkWeights.Vector},
		{keyRetrievalCapLexical, settings.Retrieval.CaptionWeights.Lexical},
		{keyRetrievalCapVector, settings.Retrieval.CaptionWeights.Vector},
		{keyRegistryMaxSessions, settings.Registry.MaxSessions},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyVectorBackend, string(settings.Vector.Backend)},
		{keyVectorQdrantURL, settings.Vector.QdrantURL},
		{keyVectorCollectionPrefix, settings.Vector.CollectionPrefix},
		{keyUploadProvider, settings.Uploads.Provider.String()},
		{keyUploadBaseURL, settings.Uploads.BaseURL},
		{keyUploadTTL, settings.Uploads.TTL.String()},
		{keyIngestWorkers, settings.Ingest.Workers},
		{keySessionActiveDocument, settings.ActiveDocument},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when present so env-provided keys stay out of the file.
	secrets := map[string]string{
		keyEmbedAPIKey:        settings.Embedding.APIKey,
		keyVectorQdrantAPIKey: settings.Vector.QdrantAPIKey,
		keyUploadAPIKey:       settings.Uploads.APIKey,
	}
	for key, val := range secrets {
		if val == "" {
			continue
		}
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetActiveDocument persists the active document id. An empty id clears it.
func (s *SettingsService) SetActiveDocument(docID string) error {
	if err := s.configStore.Set(keySessionActiveDocument, docID); err != nil {
		return fmt.Errorf("save active document: %w", err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrConfiguration, provider)
	}
	if _, ok := defaultEmbeddingModels[provider]; !ok {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrConfiguration, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = defaultEmbeddingModels[provider]
	}

	switch provider {
	case domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	default:
		// Cloud and offline providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the resolved settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}
	return nil
}

// ValidateEmbeddingConfig pings the configured embedding provider.
// Without a validator only the static checks run.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if s.validator == nil {
		return nil
	}
	return s.validator.ValidateEmbedding(&settings.Embedding)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat distinguishes an explicit zero from a missing key.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyVectorBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
