package commands

import (
	"fmt"

	"github.com/marmos91/blobflashd/internal/logger"
	"github.com/marmos91/blobflashd/pkg/config"
	"github.com/marmos91/blobflashd/pkg/wiring"
)

// buildService loads configuration and wires a dispatcher the same way
// blobflashd's start command would, for commands that operate on it
// directly.
func buildService() (*wiring.Service, *config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	svc, err := wiring.Build(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wire dispatcher: %w", err)
	}
	return svc, cfg, nil
}
