package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/htssuite/erp-mcp/internal/canonical"
	"github.com/htssuite/erp-mcp/internal/client"
	"github.com/htssuite/erp-mcp/internal/common"
	"github.com/htssuite/erp-mcp/internal/config"
	erpmcp "github.com/htssuite/erp-mcp/internal/mcp"
)

func main() {
	stdio := flag.Bool("stdio", true, "Use stdio transport (for MCP desktop clients)")
	configFile := flag.String("config", "erp-mcp.toml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	mapping, err := canonical.Load(cfg.ERP.MappingPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load canonical mapping")
		fmt.Fprintf(os.Stderr, "mapping load error: %v\n", err)
		os.Exit(1)
	}

	backend := client.New(cfg.ERP.BaseURL, cfg.ERP.Token, cfg.ERP.Timeout(), logger)

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		config.GetVersion(),
		server.WithToolCapabilities(true),
	)

	toolSet := erpmcp.NewToolSet(mapping, backend, logger)
	registered := toolSet.Register(mcpServer)
	logger.Info().
		Str("version", config.GetFullVersion()).
		Int("tools", registered).
		Str("base_url", cfg.ERP.BaseURL).
		Str("mapping", cfg.ERP.MappingPath).
		Msg("registered canonical tools")

	if *stdio {
		// Stdio transport — reads stdin, writes stdout
		if err := server.ServeStdio(mcpServer); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	port := cfg.Server.Port

	// Streamable HTTP transport — listens on configured port
	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)

	logger.Info().Str("port", port).Msg("starting MCP streamable HTTP server")
	fmt.Fprintf(os.Stderr, "Starting MCP Streamable HTTP on :%s\n", port)

	if err := httpServer.Start(":" + port); err != nil {
		fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		os.Exit(1)
	}
}
