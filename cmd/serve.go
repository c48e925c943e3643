package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/moldin/gcp-budget-agent/internal/instrumentation"
	"github.com/moldin/gcp-budget-agent/internal/logging"
	"github.com/moldin/gcp-budget-agent/internal/server"
	"github.com/moldin/gcp-budget-agent/internal/tools/gmail_tools"
)

// Transport names accepted by --transport.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		transport      string
		httpAddr       string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that gives a categorizing
agent access to the Gmail search tools.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, with /healthz and /readyz

Credentials:
  Gmail credentials are read on the first tool call, not at startup. Use a
  service account key with domain-wide delegation (credentials.subject names
  the mailbox), or run "budget-agent auth" once to store an OAuth token.

Metrics:
  With the streamable-http transport and the prometheus exporter, metrics are
  served on a dedicated port (--metrics-addr).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			loadMetricsEnvVars(cmd, &metricsConfig)

			return runServe(transport, httpAddr, metricsConfig)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR unless the
// matching flag was set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, mc *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			mc.Enabled = true
		case "false":
			mc.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			mc.Addr = addr
		}
	}
}

func runServe(transport, httpAddr string, metricsConfig MetricsConfig) error {
	if transport != transportStdio && transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}

	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var opts []server.Option
	if provider.Enabled() {
		opts = append(opts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}
	healthChecker := server.NewHealthChecker(serverContext)

	logger.Info("starting budget-agent",
		slog.String("version", version),
		slog.String("transport", transport),
		slog.String("credentials", serverContext.Credentials().Source().Describe()))

	if transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	if metricsConfig.Enabled && provider.ServesPrometheus() {
		metricsServer, err := startMetricsServer(metricsConfig, provider, healthChecker, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	return runStreamableHTTPServer(shutdownCtx, mcpSrv, healthChecker, provider.Metrics(), httpAddr, logger)
}

// newMCPServer creates the MCP server with every tool registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("budget-agent", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := gmail_tools.RegisterGmailTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register Gmail tools: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// startMetricsServer starts the metrics server and waits until it listens.
func startMetricsServer(mc MetricsConfig, provider *instrumentation.Provider, health *server.HealthChecker, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    mc.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
		Health:                  health,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, health *server.HealthChecker, metrics *instrumentation.Metrics, addr string, logger *slog.Logger) error {
	httpServer := server.NewHTTPServer(mcpSrv, health, metrics, logger)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
