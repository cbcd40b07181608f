package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding or file-upload service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// EmbeddingProviders returns the providers that can produce embeddings.
func EmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderHashing, AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-v1",
	}
}

// VectorBackend selects the similarity engine.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendLocal stores vectors in per-document SQLite files.
	VectorBackendLocal VectorBackend = "local"

	// VectorBackendQdrant uses a Qdrant server over HTTP.
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendLocal || b == VectorBackendQdrant
}

// IsNetworked returns true if the backend talks to a remote server.
func (b VectorBackend) IsNetworked() bool {
	return b == VectorBackendQdrant
}

// FigureSettings holds the vector-figure detection thresholds.
type FigureSettings struct {
	// MinSegments is the minimum count of shape-producing path operations.
	MinSegments int

	// MinArea is an absolute area floor in square points.
	// When zero, AreaFrac of the page area is used instead.
	MinArea float64

	// AreaFrac is the minimum area as a fraction of the page area.
	AreaFrac float64

	// MinStroke is the minimum mean stroke width.
	MinStroke float64

	// MergeIoUThresh merges candidates whose IoU reaches it.
	MergeIoUThresh float64

	// MaxWordsInside drops uncaptioned candidates with more interior words.
	MaxWordsInside int

	// CaptionTokens are lowercase keywords that mark a caption.
	CaptionTokens []string

	// CaptionBelowPx is the height of the search zone below a figure.
	CaptionBelowPx float64

	// CaptionAbovePx is the height of the search zone above a figure.
	// Zero disables the above-zone search.
	CaptionAbovePx float64

	// StrictCaptions rejects below-zone text without a caption keyword
	// instead of keeping it as a best-effort label.
	StrictCaptions bool

	// PadPx grows figure rectangles before rendering.
	PadPx float64

	// DPI is the raster resolution for rendered figures.
	DPI int
}

// DefaultCaptionTokens returns the default caption keywords.
func DefaultCaptionTokens() []string {
	return []string{"figure", "fig.", "chart", "diagram", "schematic", "table", "image", "photo"}
}

// DefaultFigureSettings returns the default detection thresholds.
func DefaultFigureSettings() FigureSettings {
	return FigureSettings{
		MinSegments:    40,
		AreaFrac:       0.008,
		MinStroke:      0.2,
		MergeIoUThresh: 0.2,
		MaxWordsInside: 14,
		CaptionTokens:  DefaultCaptionTokens(),
		CaptionBelowPx: 220,
		CaptionAbovePx: 60,
		PadPx:          6,
		DPI:            300,
	}
}

// Validate checks the thresholds.
func (s FigureSettings) Validate() error {
	var errs []error
	if s.MinSegments < 0 {
		errs = append(errs, errors.New("min_segments must be >= 0"))
	}
	if s.MinArea < 0 {
		errs = append(errs, errors.New("min_area must be >= 0"))
	}
	if s.AreaFrac < 0 || s.AreaFrac > 1 {
		errs = append(errs, errors.New("area_frac must be within [0, 1]"))
	}
	if s.MinStroke < 0 {
		errs = append(errs, errors.New("min_stroke must be >= 0"))
	}
	if s.MergeIoUThresh <= 0 || s.MergeIoUThresh > 1 {
		errs = append(errs, errors.New("merge_iou_thresh must be within (0, 1]"))
	}
	if s.MaxWordsInside < 0 {
		errs = append(errs, errors.New("max_words_inside must be >= 0"))
	}
	if len(s.CaptionTokens) == 0 {
		errs = append(errs, errors.New("caption_tokens must not be empty"))
	}
	if s.CaptionBelowPx <= 0 {
		errs = append(errs, errors.New("caption_below_px must be > 0"))
	}
	if s.CaptionAbovePx < 0 {
		errs = append(errs, errors.New("caption_above_px must be >= 0"))
	}
	if s.PadPx < 0 {
		errs = append(errs, errors.New("pad_px must be >= 0"))
	}
	if s.DPI <= 0 {
		errs = append(errs, errors.New("dpi must be > 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: figures: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// ChunkSettings holds text chunking parameters in characters.
type ChunkSettings struct {
	Size    int
	Overlap int

	// Strict rejects overlap >= size instead of clamping it.
	Strict bool
}

// DefaultChunkSettings returns 2000-character windows with 15% overlap.
func DefaultChunkSettings() ChunkSettings {
	return ChunkSettings{Size: 2000, Overlap: 300}
}

// RetrievalSettings holds search defaults.
type RetrievalSettings struct {
	// DefaultLimit is used when a caller passes no limit.
	DefaultLimit int

	// ChunkWeights are the hybrid weights for chunk search.
	ChunkWeights HybridWeights

	// CaptionWeights are the hybrid weights for caption search.
	CaptionWeights HybridWeights
}

// RegistrySettings sizes the per-document resource cache.
type RegistrySettings struct {
	MaxSessions int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is used by the hashing embedder.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings selects and configures the similarity engine.
type VectorSettings struct {
	Backend VectorBackend

	// QdrantURL is the Qdrant REST endpoint.
	QdrantURL string

	// QdrantAPIKey is sent as the api-key header when set.
	QdrantAPIKey string

	// CollectionPrefix namespaces Qdrant collections.
	CollectionPrefix string
}

// UploadSettings configures remote image uploads.
type UploadSettings struct {
	// Provider must be anthropic to enable uploads.
	Provider AIProvider

	APIKey  string
	BaseURL string

	// TTL is how long an uploaded file id stays reusable.
	TTL time.Duration
}

// IsConfigured returns true if uploads can be performed.
func (u UploadSettings) IsConfigured() bool {
	return u.Provider == AIProviderAnthropic && u.APIKey != ""
}

// IngestSettings controls ingestion fan-out.
type IngestSettings struct {
	// Workers is the number of documents ingested in parallel.
	Workers int
}

// Settings holds all application settings.
type Settings struct {
	Figures   FigureSettings
	Chunking  ChunkSettings
	Retrieval RetrievalSettings
	Registry  RegistrySettings
	Embedding EmbeddingSettings
	Vector    VectorSettings
	Uploads   UploadSettings
	Ingest    IngestSettings

	// ActiveDocument is restored into the registry on startup.
	ActiveDocument string
}

// DefaultSettings returns settings that work offline out of the box.
func DefaultSettings() Settings {
	return Settings{
		Figures:  DefaultFigureSettings(),
		Chunking: DefaultChunkSettings(),
		Retrieval: RetrievalSettings{
			DefaultLimit:   10,
			ChunkWeights:   DefaultHybridWeights(),
			CaptionWeights: BalancedHybridWeights(),
		},
		Registry: RegistrySettings{MaxSessions: 3},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      "hashing-v1",
			Dimensions: 512,
		},
		Vector: VectorSettings{
			Backend:          VectorBackendLocal,
			QdrantURL:        "http://localhost:6333",
			CollectionPrefix: "sercha_pdf",
		},
		Uploads: UploadSettings{
			Provider: AIProviderAnthropic,
			TTL:      12 * time.Hour,
		},
		Ingest: IngestSettings{Workers: 2},
	}
}

// Validate checks every section and joins the failures.
func (s Settings) Validate() error {
	var errs []error
	if err := s.Figures.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Chunking.Size <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunk size must be > 0", ErrConfiguration))
	}
	if s.Chunking.Overlap < 0 {
		errs = append(errs, fmt.Errorf("%w: chunk overlap must be >= 0", ErrConfiguration))
	}
	if s.Chunking.Strict && s.Chunking.Overlap >= s.Chunking.Size {
		errs = append(errs, fmt.Errorf("%w: chunk overlap must be < chunk size", ErrConfiguration))
	}
	if err := s.Retrieval.ChunkWeights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Retrieval.CaptionWeights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Registry.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("%w: max_sessions must be >= 1", ErrConfiguration))
	}
	if !s.Vector.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown vector backend %q", ErrConfiguration, s.Vector.Backend))
	}
	if s.Uploads.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: upload ttl must be > 0", ErrConfiguration))
	}
	if s.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: ingest workers must be >= 1", ErrConfiguration))
	}
	return errors.Join(errs...)
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the default pipeline from chunk settings:
// normalise first, chunk last.
func PipelineConfigFor(c ChunkSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"normaliser", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
				"strict":     c.Strict,
			},
		},
	}
}
