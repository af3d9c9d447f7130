package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marmos91/blobflashd/internal/logger"
	"github.com/marmos91/blobflashd/pkg/config"
	"github.com/marmos91/blobflashd/pkg/metrics"
	"github.com/marmos91/blobflashd/pkg/statusapi"
	"github.com/marmos91/blobflashd/pkg/wiring"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the blobflashd daemon",
	Long: `Start blobflashd: register the configured data transports and
capability implementations, install the dispatcher, and serve the
Prometheus metrics and read-only status HTTP endpoints.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/blobflashd/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("configuration loaded", "source", configSource(GetConfigFile()))

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	svc, err := wiring.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to wire dispatcher: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("error closing service", "error", err)
		}
	}()

	logger.Info("dispatcher wired",
		"transports", fmt.Sprintf("bt=%v p2a=%v lpc=%v", cfg.Transports.BT, cfg.Transports.P2A, cfg.Transports.LPC),
		"upload_targets", cfg.Firmware.UploadTargets,
		"version_blobs", len(cfg.Versions),
		"audit", cfg.Audit.Enabled,
		"metrics", cfg.Metrics.Enabled,
	)

	var servers []*http.Server

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		servers = append(servers, srv)
		go serveOrLog(srv, "metrics")
		logger.Info("metrics server listening", "address", cfg.Metrics.Address)
	}

	if cfg.Status.Enabled {
		srv := &http.Server{Addr: cfg.Status.Address, Handler: statusapi.New(svc.Dispatcher, svc.AuditStore)}
		servers = append(servers, srv)
		go serveOrLog(srv, "status")
		logger.Info("status api listening", "address", cfg.Status.Address)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("blobflashd is running, press Ctrl+C to stop")
	<-sigCh
	signal.Stop(sigCh)

	logger.Info("shutdown signal received, draining http servers")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "address", srv.Addr, "error", err)
		}
	}

	logger.Info("blobflashd stopped")
	return nil
}

func serveOrLog(srv *http.Server, name string) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "server", name, "error", err)
	}
}
