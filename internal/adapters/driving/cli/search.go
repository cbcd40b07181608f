package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var (
	searchDoc     string
	searchLimit   int
	searchType    string
	searchTarget  string
	searchWeights string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a document",
	Long: `Performs hybrid search on one document, fusing keyword (BM25) and
semantic (vector) scores. Use the subcommands to run a single leg.
Without --doc the active document is searched.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchHybrid,
}

var searchLexicalCmd = &cobra.Command{
	Use:   "lexical [query]",
	Short: "Keyword search over chunks and captions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchLexical,
}

var searchVectorCmd = &cobra.Command{
	Use:   "vector [query]",
	Short: "Semantic search over text chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchVector,
}

var searchCaptionsCmd = &cobra.Command{
	Use:   "captions [query]",
	Short: "Semantic search over figure captions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchCaptions,
}

var searchHybridCmd = &cobra.Command{
	Use:   "hybrid [query]",
	Short: "Weighted fusion of keyword and semantic search",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchHybrid,
}

func init() {
	searchCmd.PersistentFlags().StringVarP(&searchDoc, "doc", "d", "", "document id (default: active document)")
	searchCmd.PersistentFlags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchLexicalCmd.Flags().StringVarP(&searchType, "type", "t", "", "chunk or image_caption (default both)")
	for _, c := range []*cobra.Command{searchCmd, searchHybridCmd} {
		c.Flags().StringVar(&searchTarget, "target", "chunks", "chunks or captions")
		c.Flags().StringVarP(&searchWeights, "weights", "w", "", "lexical,vector weights, e.g. 0.3,0.7")
	}

	searchCmd.AddCommand(searchLexicalCmd)
	searchCmd.AddCommand(searchVectorCmd)
	searchCmd.AddCommand(searchCaptionsCmd)
	searchCmd.AddCommand(searchHybridCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearchLexical(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	typ, err := domain.ParseHitType(searchType)
	if err != nil {
		return err
	}
	hits, err := retrievalService.SearchLexical(commandContext(cmd), searchDoc, args[0], typ, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputHits(cmd, hits)
}

func runSearchVector(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	hits, err := retrievalService.SearchVector(commandContext(cmd), searchDoc, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputHits(cmd, hits)
}

func runSearchCaptions(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	hits, err := retrievalService.SearchCaptions(commandContext(cmd), searchDoc, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputHits(cmd, hits)
}

func runSearchHybrid(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.HybridOptions{K: searchLimit, Target: domain.SearchTarget(searchTarget)}
	if searchWeights != "" {
		w, err := parseWeights(searchWeights)
		if err != nil {
			return err
		}
		opts.Weights = &w
	}

	hits, err := retrievalService.SearchHybrid(commandContext(cmd), searchDoc, args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, hits)
	}

	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	printHeading(cmd, "Results:")
	cmd.Println()
	for i := range hits {
		h := &hits[i]
		score := fmt.Sprintf("%.3f (lex %.2f, vec %.2f)", h.HybridScore, h.LexicalScore, h.VectorScore)
		printHit(cmd, i, h.SearchHit, styled(cmd, scoreStyle, score))
	}
	return nil
}

func outputHits(cmd *cobra.Command, hits []domain.SearchHit) error {
	if jsonOutput {
		return printJSON(cmd, hits)
	}

	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	printHeading(cmd, "Results:")
	cmd.Println()
	for i := range hits {
		printHit(cmd, i, hits[i], styled(cmd, scoreStyle, fmt.Sprintf("%.3f", hits[i].Score)))
	}
	return nil
}

// printHit writes one result as: [N] type id (score), then the page or
// image location and a text preview.
func printHit(cmd *cobra.Command, i int, h domain.SearchHit, score string) {
	cmd.Printf("  [%d] %s %s (%s)\n", i+1, h.Type, styled(cmd, idStyle, h.ID), score)
	if h.Type == domain.HitTypeImageCaption {
		cmd.Printf("      Page: %d  Image: %s\n", h.PageIndex+1, h.Path)
	}
	if h.Text != "" {
		cmd.Printf("      %s\n", oneLine(h.Text, 160))
	}
	cmd.Println()
}

// parseWeights reads "lexical,vector".
func parseWeights(s string) (domain.HybridWeights, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.HybridWeights{}, fmt.Errorf("%w: weights must be \"lexical,vector\", got %q", domain.ErrInvalidInput, s)
	}
	lex, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	vec, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return domain.HybridWeights{}, fmt.Errorf("%w: weights must be numbers, got %q", domain.ErrInvalidInput, s)
	}
	w := domain.HybridWeights{Lexical: lex, Vector: vec}
	if err := w.Validate(); err != nil {
		return domain.HybridWeights{}, err
	}
	return w, nil
}

var chunksDoc string

var chunksCmd = &cobra.Command{
	Use:   "chunks [chunk-id...]",
	Short: "Print chunks by id",
	Long: `Prints the full text of chunks. Ids may be given as 1, 0001,
chunk_0001 or chunk_0001.txt. Unknown ids are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChunks,
}

func init() {
	chunksCmd.Flags().StringVarP(&chunksDoc, "doc", "d", "", "document id (default: active document)")
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	chunks, err := retrievalService.GetChunks(commandContext(cmd), chunksDoc, args)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, chunks)
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks found.")
		return nil
	}
	for i := range chunks {
		printHeading(cmd, fmt.Sprintf("chunk_%s.txt", chunks[i].ID))
		cmd.Println(chunks[i].Content)
		cmd.Println()
	}
	return nil
}
