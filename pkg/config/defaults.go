package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills unspecified fields with sensible defaults. Called
// after loading from file/environment, before Validate.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyStatusDefaults(&cfg.Status)
	applyFirmwareDefaults(&cfg.Firmware)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// No defaults for upload_targets, versions, or transports: the operator
	// must configure the blob catalog explicitly.
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:9090"
	}
}

func applyStatusDefaults(cfg *StatusConfig) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:8081"
	}
}

func applyFirmwareDefaults(cfg *FirmwareConfig) {
	if cfg.StagingDir == "" {
		cfg.StagingDir = "/var/lib/blobflashd/staging"
	}
	if cfg.VerifyPollInterval == 0 {
		cfg.VerifyPollInterval = 500 * time.Millisecond
	}
}

// GetDefaultConfig returns a Config populated entirely with defaults, for
// use when no config file is present.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Firmware: FirmwareConfig{
			UploadTargets: []string{"/flash/image"},
			HashTarget:    "/flash/hash",
			VerifyCommand: []string{"/usr/libexec/blobflashd/verify.sh"},
		},
		Transports: TransportsConfig{
			BT: true,
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  "/var/lib/blobflashd/audit.db",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
