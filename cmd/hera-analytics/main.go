// HERA analytics: guarded MCP gateway over the HERA data model.
//
// Usage:
//
//	hera-analytics serve                 # MCP over stdio
//	hera-analytics serve --http :8080    # MCP over streamable HTTP
//	hera-analytics version
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heraerp/hera-analytics/internal/config"
	"github.com/heraerp/hera-analytics/internal/logging"
	heraserver "github.com/heraerp/hera-analytics/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	httpAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "hera-analytics",
	Short: "Guarded MCP gateway over the HERA data model",
	Long: `hera-analytics exposes one organization-scoped view of the HERA data model
to AI assistants over MCP. Every call is checked against the guardrails
(tenant scope, smart codes, ledger balance, result limits) before it
touches the store.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "hera-analytics": {
        "command": "hera-analytics",
        "args": ["serve"]
      }
    }
  }`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio unless --http is set)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hera-analytics v%s\n", heraserver.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hera.yaml", "path to the YAML config file")
	serveCmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	s, cleanup, err := heraserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	if cfg.Server.HTTPAddr == "" {
		log.Info("serving stdio")
		return server.ServeStdio(s)
	}
	return serveHTTP(s, cfg.Server.HTTPAddr, log)
}

// serveHTTP runs the streamable HTTP transport until SIGINT or SIGTERM.
func serveHTTP(s *server.MCPServer, addr string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() {
		log.Info("serving streamable HTTP", zap.String("addr", addr))
		errCh <- hs.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return hs.Shutdown(shutdownCtx)
}
