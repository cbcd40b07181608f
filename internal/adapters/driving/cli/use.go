package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use [doc-id]",
	Short: "Set the active document",
	Long: `Loads a document's indices and makes it the default target of search,
chunks and figures commands and of the MCP tools. The choice is saved in
the config file. Without an id the current active document is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUse,
}

func init() {
	rootCmd.AddCommand(useCmd)
}

func runUse(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	if len(args) == 0 {
		if id, ok := retrievalService.ActiveDocument(); ok {
			cmd.Printf("Active document: %s\n", id)
		} else {
			cmd.Println("No active document.")
		}
		return nil
	}

	if err := retrievalService.SetActiveDocument(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to set active document: %w", err)
	}
	cmd.Printf("Active document: %s\n", args[0])
	return nil
}
