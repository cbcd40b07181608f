package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage ingested documents",
	Long:    `List, view, or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its images and indices",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found. Run 'sercha-pdf ingest <file.pdf>' to add one.")
		return nil
	}

	active := ""
	if retrievalService != nil {
		active, _ = retrievalService.ActiveDocument()
	}

	printHeading(cmd, "Documents:")
	cmd.Println()
	for i := range docs {
		marker := " "
		if docs[i].ID == active {
			marker = "*"
		}
		cmd.Printf("%s %s\n", marker, styled(cmd, idStyle, docs[i].ID))
		cmd.Printf("    Title: %s\n", docs[i].Title)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	doc, err := documentService.Get(commandContext(cmd), docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd, doc)
	}

	printHeading(cmd, "Document: "+doc.ID)
	cmd.Printf("  Title: %s\n", doc.Title)
	cmd.Printf("  Path: %s\n", doc.Path)
	cmd.Printf("  Status: %s\n", doc.Status)
	if doc.Error != "" {
		cmd.Printf("  Error: %s\n", doc.Error)
	}
	cmd.Printf("  Pages: %d\n", doc.PageCount)
	cmd.Printf("  Chunks: %d\n", doc.ChunkCount)
	cmd.Printf("  Figures: %d\n", doc.FigureCount)
	cmd.Printf("  Created: %s\n", doc.CreatedAt.Format(time.RFC3339))
	cmd.Printf("  Updated: %s\n", doc.UpdatedAt.Format(time.RFC3339))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(commandContext(cmd), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document: %s\n", docID)
	return nil
}
