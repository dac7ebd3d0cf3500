// Command fonradar-mcp exposes the fund query engine as an MCP server over
// stdio, for use from MCP-capable clients.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/fonradar/fonradar/internal/app"
)

func main() {
	configPath := os.Getenv("FONRADAR_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.StartRefreshScheduler(); err != nil {
		a.Logger.Warn().Err(err).Msg("Refresh scheduler failed to start")
	}

	a.Logger.Info().Msg("Serving MCP over stdio")
	if err := server.ServeStdio(a.MCPServer); err != nil {
		a.Logger.Error().Err(err).Msg("MCP server stopped")
		os.Exit(1)
	}
}
