package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the filtering engine as an HTTP service",
	Long: "Starts an HTTP server exposing the PII filter: POST /v1/filter/text,\n" +
		"POST /v1/filter/object, GET /v1/stats, plus a websocket event stream\n" +
		"for redaction activity.",
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = runServe()
	},
}

func runServe() int {
	cfg, log, code := loadConfigAndLogger()
	if code != ExitSuccess {
		return code
	}
	defer log.Sync()

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("creating server failed", zap.Error(err))
		return ExitRuntimeError
	}

	// Hot-reload privacy toggles on config file changes.
	if err := config.Watch(cfg, func(updated *config.Config) {
		log.Info("configuration reloaded")
		srv.Reload(updated)
	}); err != nil {
		log.Warn("config watch unavailable", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server error", zap.Error(err))
		return ExitRuntimeError
	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown failed: %v\n", err)
			return ExitRuntimeError
		}
		log.Info("server shutdown complete")
	}

	return ExitSuccess
}
