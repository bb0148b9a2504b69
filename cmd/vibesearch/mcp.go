package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpTransport "github.com/kailas-cloud/vibesearch/internal/transport/mcp"
)

func newMCPCommand(env *string) *cobra.Command {
	var (
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server",
		Long:  "Run the MCP server exposing search_apartments, apartment_preview and apartment_details.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *env)
			if err != nil {
				return err
			}
			defer a.close()
			a.watchListings(cmd.Context())

			s := mcpTransport.New(a.search, a.listings, a.cfg.Index.MaxLimit, a.logger)

			switch transport {
			case "stdio":
				return server.ServeStdio(s)
			case "http":
				addr := address
				if addr == "" {
					addr = ":8081"
				}
				a.logger.Info("Starting MCP streamable HTTP server", zap.String("addr", addr))
				return server.NewStreamableHTTPServer(s).Start(addr)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: stdio, http)", transport)
			}
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address for http, e.g. :8081")
	return cmd
}
