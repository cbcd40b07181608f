package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure figure detection, chunking, retrieval, embedding and
upload settings. Values live in config.toml under the data directory and may
be overridden by SERCHA_PDF_* environment variables.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider for similarity search.

Changing the provider or model invalidates existing vector indices; run
'sercha-pdf reindex' for each document afterwards.`,
	RunE: runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if jsonOutput {
		masked := *settings
		masked.Embedding.APIKey = maskSecret(masked.Embedding.APIKey)
		masked.Vector.QdrantAPIKey = maskSecret(masked.Vector.QdrantAPIKey)
		masked.Uploads.APIKey = maskSecret(masked.Uploads.APIKey)
		return printJSON(cmd, masked)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	f := settings.Figures
	cmd.Println("[Figures]")
	cmd.Printf("  Min segments: %d\n", f.MinSegments)
	if f.MinArea > 0 {
		cmd.Printf("  Min area: %.0f pt²\n", f.MinArea)
	} else {
		cmd.Printf("  Min area: %.3f of page\n", f.AreaFrac)
	}
	cmd.Printf("  Min stroke: %.2f\n", f.MinStroke)
	cmd.Printf("  Merge IoU: %.2f\n", f.MergeIoUThresh)
	cmd.Printf("  Max words inside: %d\n", f.MaxWordsInside)
	cmd.Printf("  Caption tokens: %s\n", strings.Join(f.CaptionTokens, ", "))
	cmd.Printf("  Caption zone: %.0f below, %.0f above\n", f.CaptionBelowPx, f.CaptionAbovePx)
	cmd.Printf("  Strict captions: %t\n", f.StrictCaptions)
	cmd.Printf("  Render: %d dpi, %.0f pt padding\n", f.DPI, f.PadPx)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	r := settings.Retrieval
	cmd.Println("[Retrieval]")
	cmd.Printf("  Default limit: %d\n", r.DefaultLimit)
	cmd.Printf("  Chunk weights: %.2f lexical, %.2f vector\n", r.ChunkWeights.Lexical, r.ChunkWeights.Vector)
	cmd.Printf("  Caption weights: %.2f lexical, %.2f vector\n", r.CaptionWeights.Lexical, r.CaptionWeights.Vector)
	cmd.Printf("  Max sessions: %d\n", settings.Registry.MaxSessions)
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	cmd.Printf("  Model: %s\n", e.Model)
	if e.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
	}
	if e.Provider == domain.AIProviderHashing {
		cmd.Printf("  Dimensions: %d\n", e.Dimensions)
	}
	if e.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", keyStatus(e.APIKey))
	}
	status := "configured"
	if !e.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	v := settings.Vector
	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", v.Backend)
	if v.Backend.IsNetworked() {
		cmd.Printf("  Qdrant URL: %s\n", v.QdrantURL)
		cmd.Printf("  Collection prefix: %s\n", v.CollectionPrefix)
		if v.QdrantAPIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(v.QdrantAPIKey))
		}
	}
	cmd.Println()

	u := settings.Uploads
	cmd.Println("[Uploads]")
	cmd.Printf("  Provider: %s\n", u.Provider.Description())
	cmd.Printf("  API Key: %s\n", keyStatus(u.APIKey))
	cmd.Printf("  TTL: %s\n", u.TTL)
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Workers: %d\n", settings.Ingest.Workers)
	if settings.ActiveDocument != "" {
		cmd.Printf("  Active document: %s\n", settings.ActiveDocument)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-pdf settings embedding' or edit config.toml to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Embedding Provider")
	providers := domain.EmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	cmd.Println("Run 'sercha-pdf reindex <doc-id>' to rebuild existing vector indices.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, fallback *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(fallback)
}

func keyStatus(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func maskSecret(key string) string {
	if key == "" {
		return ""
	}
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
