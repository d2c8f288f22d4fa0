package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/adapters/mcp"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the tool catalog to MCP clients. Read-only tools are always
available; tools that change files are listed only with --allow-writes.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("mcp-transport")
		if cmd.Flags().Changed("allow-writes") {
			cfg.Server.AllowWrites, _ = cmd.Flags().GetBool("allow-writes")
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		// Stdout carries JSON-RPC on stdio, so nothing else may write there.
		logger, err := cli.NewLogger(cfg.LogLevel, false)
		if err != nil {
			return err
		}
		log.SetOutput(os.Stderr)

		ws, err := fileops.New(cfg.Root, fileops.WithLogger(logger))
		if err != nil {
			return err
		}
		srv := mcp.NewServer(ws, tendril.Version,
			mcp.AllowWrites(cfg.Server.AllowWrites),
			mcp.WithLogger(logger),
		)
		logger.Info("mcp tools exposed", "tools", srv.Exposed(), "allow_writes", cfg.Server.AllowWrites)

		switch transport {
		case "stdio":
			return srv.ServeStdio()
		case "sse":
			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()
			baseURL, _ := cmd.Flags().GetString("public-url")
			if err := srv.ServeSSE(sc, cfg.Server.Addr, baseURL); err != nil {
				return err
			}
			logger.Info("mcp server stopped")
			return nil
		default:
			return fmt.Errorf("unknown transport %q; supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("mcp-transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Bool("allow-writes", false, "Expose tools that modify files")
	mcpCmd.Flags().String("addr", "", "Listen address for sse (default from config, :8080)")
	mcpCmd.Flags().String("public-url", "", "Public base URL advertised to sse clients")
}
