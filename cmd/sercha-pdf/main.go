// Command sercha-pdf extracts, indexes and searches PDF documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/blob/local"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/lexical/fts"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/pdf/pdfkit"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/uploader/anthropic"
	localvector "github.com/custodia-labs/sercha-pdf/internal/adapters/driven/vector/local"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/sercha-pdf/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-pdf/internal/asyncbridge"
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/core/services"
	"github.com/custodia-labs/sercha-pdf/internal/figures"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
	"github.com/custodia-labs/sercha-pdf/internal/postprocessors"
)

// homeEnv overrides the data directory.
const homeEnv = "SERCHA_PDF_HOME"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer app.Close()

	cli.SetServices(app.services)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// app owns every adapter that needs closing.
type app struct {
	services cli.Services
	closers  []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

func dataDir() (string, error) {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-pdf"), nil
}

func newApp() (_ *app, err error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	if err := file.LoadDotEnv(filepath.Join(dir, ".env"), ".env"); err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, services.WithAIValidator(ai.NewConfigValidator()))
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("resolving settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	a.closers = append(a.closers, store)

	blobs, err := local.NewStore(filepath.Join(dir, "blobs"))
	if err != nil {
		return nil, err
	}
	lexical, err := fts.NewEngine(filepath.Join(dir, "data"))
	if err != nil {
		return nil, err
	}

	embedding := ai.InitEmbedding(&settings.Embedding)
	for _, w := range embedding.Warnings {
		logger.Warn("embedding: %s", w)
	}
	a.closers = append(a.closers, embedding)
	embedder := embedding.EmbeddingService

	bridge := asyncbridge.New()
	similarity, err := newSimilarityEngine(settings, filepath.Join(dir, "data"), embedder, bridge)
	if err != nil {
		return nil, err
	}
	if c, ok := similarity.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	extractor, err := figures.NewExtractor(settings.Figures)
	if err != nil {
		return nil, err
	}
	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := processors.BuildPipeline(domain.PipelineConfigFor(settings.Chunking))
	if err != nil {
		return nil, fmt.Errorf("building text pipeline: %w", err)
	}

	registry := services.NewRegistry(lexical, similarity, store.ChunkStore(), settings.Registry.MaxSessions)
	indexer := services.NewIndexBuilder(lexical, similarity, registry)

	ingestion := services.NewIngestionService(
		pdfkit.New(),
		store.DocumentStore(),
		store.ChunkStore(),
		store.FigureStore(),
		blobs,
		extractor,
		pipeline,
		indexer,
		services.WithWorkers(settings.Ingest.Workers),
		services.WithEmbeddingCheck(embedder),
		services.WithProgress(func(path string, page, pages int) {
			logger.Debug("%s: page %d/%d", filepath.Base(path), page, pages)
		}),
	)
	retrieval := services.NewRetrievalService(
		registry,
		store.DocumentStore(),
		store.FigureStore(),
		settings.Retrieval,
		services.WithActivePersistence(settingsService.SetActiveDocument),
	)
	documents := services.NewDocumentService(
		store.DocumentStore(),
		store.FigureStore(),
		blobs,
		indexer,
		registry,
		services.WithActiveReset(func() error { return settingsService.SetActiveDocument("") }),
	)

	var uploader driven.FileUploader
	if settings.Uploads.IsConfigured() {
		up, err := anthropic.NewUploader(anthropic.Config{
			APIKey:  settings.Uploads.APIKey,
			BaseURL: settings.Uploads.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		uploader = up
	}
	uploads := services.NewUploadService(
		store.UploadCacheStore(),
		uploader,
		store.FigureStore(),
		blobs,
		settings.Uploads.TTL,
	)

	// The bundle loads lazily on first use.
	if id := settings.ActiveDocument; id != "" {
		if _, perr := uuid.Parse(id); perr == nil {
			registry.SetActive(id)
		} else {
			logger.Warn("ignoring invalid active document %q", id)
		}
	}

	a.services = cli.Services{
		Ingestion: ingestion,
		Documents: documents,
		Retrieval: retrieval,
		Settings:  settingsService,
		Uploads:   uploads,
		Bridge:    bridge,
	}
	return a, nil
}

func newSimilarityEngine(
	settings *domain.Settings,
	dir string,
	embedder driven.EmbeddingService,
	bridge *asyncbridge.Bridge,
) (driven.SimilarityEngine, error) {
	switch settings.Vector.Backend {
	case domain.VectorBackendQdrant:
		return qdrant.NewEngine(qdrant.Config{
			URL:              settings.Vector.QdrantURL,
			APIKey:           settings.Vector.QdrantAPIKey,
			CollectionPrefix: settings.Vector.CollectionPrefix,
		}, embedder, qdrant.WithBridge(bridge))
	case domain.VectorBackendLocal:
		return localvector.NewEngine(dir, embedder)
	default:
		return nil, errors.New("unknown vector backend " + string(settings.Vector.Backend))
	}
}
