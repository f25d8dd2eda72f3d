package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/adapters/driving/mcp"
	"github.com/custodia-labs/guestmail/internal/logger"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the inbox to an AI assistant over MCP",
	Long: `Runs a Model Context Protocol server so an assistant can browse categorised
mail, read summaries and bookings, review unsubscribe suggestions and trigger
syncs.

The server speaks JSON-RPC over stdio unless --http is given. When the
configuration is incomplete only the read-only tools are available.

Assistant configuration:
  {
    "mcpServers": {
      "guestmail": {
        "command": "/path/to/guestmail",
        "args": ["mcp"]
      }
    }
  }`,
	Example: `  guestmail mcp
  guestmail mcp --http 127.0.0.1:8765`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}
	if syncService == nil {
		logger.Warn("mcp: sync tools disabled: %v", notConfigured("sync"))
	}

	server, err := mcp.NewServer(&mcp.Ports{Inbox: inboxService, Sync: syncService})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
