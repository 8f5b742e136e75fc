package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/offlinejudge.net/internal/adapter/crypto"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	http2 "gitlab.com/offlinejudge.net/internal/http"
	"gitlab.com/offlinejudge.net/internal/schedulerengine"
)

const shutdownTimeout = 5 * time.Second

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the judge HTTP API",
	Long: `Start the HTTP server with the catalog API, the run endpoint and the
websocket stream.

Examples:
  judge serve
  judge serve --env dev --port 9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if portFlag > 0 {
		sysCfg.HttpConfig.Port = portFlag
	}
	logger.Info("Starting judge service", "catalog", sysCfg.CatalogConfig.Source)

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var jwtSvc primary.JWTService
	if sysCfg.JwtConfig.Enabled() {
		jwtSvc = crypto.NewJWTService(sysCfg.JwtConfig)
	}
	serviceProvider := http2.NewServiceProvider(a.catalogSvc, a.judgeSvc, jwtSvc)

	//server
	httpServer := http2.NewServer(sysCfg.HttpConfig, sysCfg.JudgeConfig, "judge", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		return err
	}
	serveErr, err := httpServer.Start(ctx)
	if err != nil {
		return err
	}

	var engine *schedulerengine.CatalogEngine
	if a.reloadable != nil {
		engine = schedulerengine.NewCatalogEngine(sysCfg.CatalogConfig, a.reloadable, a.catalogSvc, logger)
		if !sysCfg.DebugMode {
			engine.Start(ctx)
		}
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if engine != nil {
		engine.Wait()
	}

	logger.Info("successfully shutdown server")
	return nil
}
