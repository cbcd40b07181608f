// Package cli implements the sercha-pdf command line.
//
// Commands reach the core through package-level driving ports that the
// entry point injects with SetServices before Execute runs.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-pdf/internal/asyncbridge"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Injected services.
var (
	ingestionService driving.IngestionService
	documentService  driving.DocumentService
	retrievalService driving.RetrievalService
	settingsService  driving.SettingsService
	uploadService    driving.UploadService
	bridge           *asyncbridge.Bridge
)

// Root flags.
var (
	verbose    bool
	jsonOutput bool
)

// Services holds the driving ports the commands use.
type Services struct {
	Ingestion driving.IngestionService
	Documents driving.DocumentService
	Retrieval driving.RetrievalService
	Settings  driving.SettingsService
	Uploads   driving.UploadService

	// Bridge is shared with the MCP server.
	Bridge *asyncbridge.Bridge
}

// SetServices injects the services used by all commands.
func SetServices(s Services) {
	ingestionService = s.Ingestion
	documentService = s.Documents
	retrievalService = s.Retrieval
	settingsService = s.Settings
	uploadService = s.Uploads
	bridge = s.Bridge
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "sercha-pdf",
	Short: "Extract, index and search PDF documents",
	Long: `sercha-pdf ingests PDF files, extracts their text, embedded images and
vector-drawn figures with captions, and builds per-document keyword and
similarity indices. Search them from the command line or serve them to an
AI assistant over MCP.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command context or a background context
// when the command runs outside Execute, as in tests.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
