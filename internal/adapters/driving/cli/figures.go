package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var figuresCmd = &cobra.Command{
	Use:   "figures",
	Short: "Inspect extracted figures",
}

var figuresListCmd = &cobra.Command{
	Use:   "list [doc-id]",
	Short: "List the figures of a document",
	Long:  `Lists bitmap images and detected vector figures. Without an id the active document is used.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFiguresList,
}

var figuresDetectCmd = &cobra.Command{
	Use:   "detect [pdf]",
	Short: "Detect vector figures without ingesting",
	Long: `Runs vector-figure detection, captioning and scoring on a PDF and prints
the retained regions. Nothing is stored. Useful to tune the figures.*
thresholds in the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: runFiguresDetect,
}

var detectPages string

func init() {
	figuresDetectCmd.Flags().StringVar(&detectPages, "pages", "", "comma-separated 1-based page numbers (default all)")
	figuresCmd.AddCommand(figuresListCmd)
	figuresCmd.AddCommand(figuresDetectCmd)
	rootCmd.AddCommand(figuresCmd)
}

func runFiguresList(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID, err := resolveDocument(args)
	if err != nil {
		return err
	}

	figs, err := documentService.Figures(commandContext(cmd), docID)
	if err != nil {
		return fmt.Errorf("failed to list figures: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, figs)
	}

	if len(figs) == 0 {
		cmd.Println("No figures found.")
		return nil
	}
	for i := range figs {
		f := &figs[i]
		caption := "(no caption)"
		if f.Caption != "" {
			caption = oneLine(f.Caption, 80)
			if !f.HasCaption {
				caption += " (label)"
			}
		}
		cmd.Printf("%s  %-6s page %d  %dx%d\n", styled(cmd, idStyle, f.ID), f.Kind, f.PageIndex+1, f.Width, f.Height)
		cmd.Printf("    %s\n", caption)
	}
	cmd.Printf("\nTotal: %d figures\n", len(figs))
	return nil
}

func runFiguresDetect(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	pages, err := parsePages(detectPages)
	if err != nil {
		return err
	}

	regions, err := ingestionService.DetectFigures(commandContext(cmd), args[0], pages)
	if err != nil {
		return fmt.Errorf("failed to detect figures: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, regions)
	}

	if len(regions) == 0 {
		cmd.Println("No vector figures detected.")
		return nil
	}
	for i := range regions {
		r := &regions[i]
		cmd.Printf("page %d  score %s  segments %d  words %d\n",
			r.PageIndex+1, styled(cmd, scoreStyle, fmt.Sprintf("%.1f", r.Score)), r.Segments, r.WordsInside)
		cmd.Printf("    rect [%.1f %.1f %.1f %.1f]\n", r.Rect.X0, r.Rect.Y0, r.Rect.X1, r.Rect.Y1)
		if r.HasCaption {
			cmd.Printf("    caption: %s\n", oneLine(r.Caption, 100))
		}
	}
	return nil
}

// parsePages converts "1,3" into 0-based indices.
func parsePages(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: page %q", domain.ErrInvalidInput, part)
		}
		pages = append(pages, n-1)
	}
	return pages, nil
}

// resolveDocument returns the id given on the command line or the
// active document.
func resolveDocument(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if retrievalService != nil {
		if id, ok := retrievalService.ActiveDocument(); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: pass a document id or run 'sercha-pdf use <doc-id>'", domain.ErrNoActiveDocument)
}
