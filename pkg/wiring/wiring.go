// Package wiring assembles a blobsvc.Dispatcher, its capability and
// transport implementations, and the optional audit store from a loaded
// config.Config. Both cmd/blobflashd (serving the real daemon) and
// cmd/blobctl (operating directly against the same on-disk state for
// local bench use, since the IPMI/OEM blob transport itself is out of
// scope) build their Dispatcher through this package so the two never
// drift apart.
package wiring

import (
	"fmt"
	"strings"

	"github.com/marmos91/blobflashd/pkg/audit"
	"github.com/marmos91/blobflashd/pkg/blobsvc"
	"github.com/marmos91/blobflashd/pkg/capability/imagewriter"
	"github.com/marmos91/blobflashd/pkg/capability/verify"
	"github.com/marmos91/blobflashd/pkg/capability/versionprobe"
	"github.com/marmos91/blobflashd/pkg/config"
	"github.com/marmos91/blobflashd/pkg/metrics"
	metricsprom "github.com/marmos91/blobflashd/pkg/metrics/prometheus"
	"github.com/marmos91/blobflashd/pkg/transport/bt"
	"github.com/marmos91/blobflashd/pkg/transport/lpc"
	"github.com/marmos91/blobflashd/pkg/transport/mmiowindow"
	"github.com/marmos91/blobflashd/pkg/transport/p2a"
)

// Service bundles everything wiring built, so callers can wire once and
// reach every piece they need (serving metrics, closing the audit store
// on shutdown, etc).
type Service struct {
	// Dispatcher is the raw, unwrapped dispatcher. pkg/statusapi needs it
	// directly for its Firmware()/Version() introspection accessors, which
	// only the concrete type exposes.
	Dispatcher *blobsvc.Dispatcher

	// Facade is Dispatcher wrapped with whichever of instrumentation and
	// audit recording cfg enables; callers that only drive blob operations
	// (cmd/blobctl) should use this instead of Dispatcher directly.
	Facade blobsvc.Facade

	AuditStore *audit.Store // nil if cfg.Audit.Enabled is false
	Metrics    metrics.BlobMetrics

	windows []*mmiowindow.Window // kept for Close
}

// Close releases any resources wiring opened (P2A/LPC memory windows, the
// audit database).
func (s *Service) Close() error {
	var firstErr error
	for _, w := range s.windows {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.AuditStore != nil {
		if err := s.AuditStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build constructs a fully wired Service from cfg.
func Build(cfg *config.Config) (*Service, error) {
	svc := &Service{}

	sessions := blobsvc.NewSessionTable()

	transports, err := buildTransports(cfg, svc)
	if err != nil {
		return nil, err
	}

	// firmware is assigned below, once NewFirmwareHandler has something to
	// return; verifier's image-path callback closes over the pointer
	// rather than a snapshot so it always resolves the blob actually
	// uploaded, not just the first configured upload target (§4.3).
	var firmware *blobsvc.FirmwareHandler
	writer := imagewriter.New(cfg.Firmware.StagingDir)
	verifier := verify.New(cfg.Firmware.VerifyCommand, func() string {
		return writer.Path(firmware.CurrentUploadTarget())
	})

	uploadTargets := make([]blobsvc.BlobID, len(cfg.Firmware.UploadTargets))
	for i, id := range cfg.Firmware.UploadTargets {
		uploadTargets[i] = blobsvc.BlobID(id)
	}

	firmware = blobsvc.NewFirmwareHandler(
		uploadTargets,
		blobsvc.BlobID(cfg.Firmware.HashTarget),
		transports,
		sessions,
		writer,
		verifier,
	)

	version := blobsvc.NewVersionHandler(sessions)
	for _, vb := range cfg.Versions {
		probe := versionprobe.New(strings.Fields(vb.ProbeCommand), vb.ImagePath)
		version.Register(blobsvc.BlobID(vb.BlobID), probe, probe)
	}

	dispatcher := blobsvc.NewDispatcher(firmware, version, sessions)
	svc.Dispatcher = dispatcher

	var facade blobsvc.Facade = dispatcher

	if cfg.Metrics.Enabled {
		svc.Metrics = metricsprom.NewBlobMetrics()
		facade = blobsvc.NewInstrumentedDispatcher(dispatcher, svc.Metrics)
	}

	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		svc.AuditStore = store
		facade = audit.NewRecordingDispatcher(dispatcher, facade, store)
	}

	svc.Facade = facade
	return svc, nil
}

func buildTransports(cfg *config.Config, svc *Service) (*blobsvc.TransportRegistry, error) {
	registry := blobsvc.NewTransportRegistry()

	if cfg.Transports.BT {
		registry.Register(bt.New())
	}
	if cfg.Transports.P2A {
		window, err := openWindow(cfg)
		if err != nil {
			return nil, fmt.Errorf("open p2a window: %w", err)
		}
		svc.windows = append(svc.windows, window)
		registry.Register(p2a.New(window))
	}
	if cfg.Transports.LPC {
		window, err := openWindow(cfg)
		if err != nil {
			return nil, fmt.Errorf("open lpc window: %w", err)
		}
		svc.windows = append(svc.windows, window)
		registry.Register(lpc.New(window))
	}

	return registry, nil
}

func openWindow(cfg *config.Config) (*mmiowindow.Window, error) {
	wc := cfg.Transports.LPCWindow
	return mmiowindow.Open(wc.DevicePath, wc.Offset, wc.Size)
}
