package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf...]",
	Short: "Extract and index PDF files",
	Long: `Extracts page text, embedded images and vector figures from each PDF,
chunks the text and builds the keyword and similarity indices.
Files are processed in parallel according to ingest.workers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [doc-id]",
	Short: "Rebuild the indices of an ingested document",
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	docs, err := ingestionService.IngestAll(commandContext(cmd), args)
	if jsonOutput {
		if jerr := printJSON(cmd, docs); jerr != nil {
			return jerr
		}
		return err
	}

	failed := 0
	for i := range docs {
		d := &docs[i]
		if d.Status == domain.DocumentStatusFailed {
			failed++
			cmd.Printf("%s %s: %s\n", styled(cmd, errorStyle, "FAILED"), d.Path, d.Error)
			continue
		}
		cmd.Printf("%s %s\n", styled(cmd, idStyle, d.ID), d.Title)
		cmd.Printf("    Pages: %d  Chunks: %d  Figures: %d\n", d.PageCount, d.ChunkCount, d.FigureCount)
	}
	if failed > 0 || err != nil {
		if err == nil {
			err = errors.New("see messages above")
		}
		return fmt.Errorf("%d of %d documents failed: %w", failed, len(docs), err)
	}
	cmd.Printf("Ingested %d documents.\n", len(docs))
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := ingestionService.Reindex(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to reindex: %w", err)
	}
	cmd.Printf("Reindexed %s\n", args[0])
	return nil
}
