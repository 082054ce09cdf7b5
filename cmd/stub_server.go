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

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/stubapi"
	"github.com/frahmantamala/gatepass/internal/telemetry"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

var (
	stubPort int
	stubSeed bool
)

var stubServerCmd = &cobra.Command{
	Use:   "stub-server",
	Short: "Run a local gate-pass API for development",
	Long:  `Run an HTTP server that implements the gate-pass REST API, backed by sqlite or postgres.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startStubServer(cmd.Context())
	},
}

func startStubServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if stubPort > 0 {
		cfg.Stub.Port = stubPort
	}
	if err := cfg.Stub.Validate(); err != nil {
		return fmt.Errorf("invalid stub config: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	lg := logger.LoggerWrapper()

	shutdownTracing := telemetry.Setup(ctx, cfg.Tracing.Enabled, cfg.Tracing.ServiceName+"-stub", lg)

	stub, err := stubapi.New(cfg.Stub, lg)
	if err != nil {
		return fmt.Errorf("failed to start stub: %w", err)
	}
	if err := stub.Service.Seed(ctx, stubSeed); err != nil {
		return fmt.Errorf("failed to seed stub: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Stub.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      stub.Handler,
		ReadTimeout:  cfg.Stub.ReadTimeout,
		WriteTimeout: cfg.Stub.WriteTimeout,
	}
	lg.Info("starting stub server", "address", addr, "driver", cfg.Stub.Database.Driver)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	var serveErr error
	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("stub server error: %w", err)
		}
	}

	shutdownCtx, cancel := internal.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	closeQuietly(lg, "server shutdown", server.Shutdown(shutdownCtx))
	closeQuietly(lg, "database close", stub.Close())
	closeQuietly(lg, "tracer shutdown", shutdownTracing(shutdownCtx))

	if serveErr == nil {
		lg.Info("stub server stopped")
	}
	return serveErr
}

func closeQuietly(lg *slog.Logger, what string, err error) {
	if err != nil {
		lg.Error(what+" error", "error", err)
	}
}

func init() {
	stubServerCmd.Flags().IntVar(&stubPort, "port", 0, "listen port (default from config, 8000)")
	stubServerCmd.Flags().BoolVar(&stubSeed, "seed", false, "also create one gate pass in each status")
}
