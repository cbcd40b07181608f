package cli

import (
	"errors"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-pdf/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve ingested PDFs to AI agents over MCP",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server over the ingested documents.

Without --port the server speaks JSON-RPC on stdin/stdout, which is what
desktop assistants expect when they launch sercha-pdf themselves. With
--port it serves the streamable HTTP transport instead.

Tools: set_active_document, text_search, vector_search, search_caption,
hybrid_search, get_chunks, list_figures, prepare_images.
Resources: sercha-pdf://documents and per-document figure metadata.

Examples:
  sercha-pdf mcp serve
  sercha-pdf mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "sercha-pdf": {"command": "/path/to/sercha-pdf", "args": ["mcp", "serve"]}
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "interface to bind with --port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: retrievalService,
		Document:  documentService,
		Uploads:   uploadService,
		Bridge:    bridge,
	})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if mcpPort <= 0 {
		return server.Run(ctx)
	}
	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	return server.RunHTTP(ctx, addr, func(a net.Addr) {
		cmd.Printf("MCP server listening on http://%s\n", a)
	})
}
