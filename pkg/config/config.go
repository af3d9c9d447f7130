package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the static configuration for blobflashd.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (BLOBFLASH_*) (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Status contains the read-only HTTP status API configuration.
	Status StatusConfig `mapstructure:"status" yaml:"status"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Firmware describes the firmware update FSM's blob catalog and backing
	// files.
	Firmware FirmwareConfig `mapstructure:"firmware" yaml:"firmware"`

	// Transports lists which data transports are accepted on open().
	Transports TransportsConfig `mapstructure:"transports" yaml:"transports"`

	// Versions lists the version-query blobs this daemon serves.
	Versions []VersionBlobConfig `mapstructure:"versions" yaml:"versions"`

	// Audit configures the completed-transition audit log.
	Audit AuditConfig `mapstructure:"audit" yaml:"audit"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" validate:"omitempty,hostname_port" yaml:"address"`
}

// StatusConfig configures the read-only chi-based status API.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" validate:"omitempty,hostname_port" yaml:"address"`
}

// FirmwareConfig describes the blobs the firmware handler serves and the
// backing capability implementations it drives.
type FirmwareConfig struct {
	// UploadTargets are the blob ids that accept a firmware image upload.
	// At least one is required (e.g. "/flash/image", "/flash/tarball").
	UploadTargets []string `mapstructure:"upload_targets" validate:"required,min=1" yaml:"upload_targets"`

	// HashTarget is the optional detached-signature/hash blob id. Empty
	// disables hash-target handling entirely.
	HashTarget string `mapstructure:"hash_target" yaml:"hash_target,omitempty"`

	// StagingDir is where pkg/capability/imagewriter stages uploaded bytes
	// before verification.
	StagingDir string `mapstructure:"staging_dir" validate:"required" yaml:"staging_dir"`

	// VerifyCommand is the external command pkg/capability/verify shells
	// out to when a Verify blob is committed, with the staged image path
	// appended as its last argument. Its exit status drives
	// VerificationTrigger; its output is not read.
	VerifyCommand []string `mapstructure:"verify_command" validate:"required,min=1" yaml:"verify_command"`

	// VerifyPollInterval is defaulted and validated; nothing reads it, and
	// pkg/capability/verify checks the subprocess only when
	// CheckVerificationState is called.
	VerifyPollInterval time.Duration `mapstructure:"verify_poll_interval" validate:"required,gt=0" yaml:"verify_poll_interval"`
}

// TransportsConfig controls which DataTransport implementations are
// registered, i.e. which OpenFlags transport bit(s) open() will accept.
type TransportsConfig struct {
	BT  bool `mapstructure:"bt" yaml:"bt"`
	P2A bool `mapstructure:"p2a" yaml:"p2a"`
	LPC bool `mapstructure:"lpc" yaml:"lpc"`

	// LPCWindow configures the memory-mapped I/O window backing the P2A
	// and LPC transports. Only consulted when P2A or LPC is enabled.
	LPCWindow MMIOWindowConfig `mapstructure:"lpc_window" yaml:"lpc_window"`
}

// MMIOWindowConfig describes a byte-addressable memory window used by the
// P2A and LPC transports to exchange blob bytes with the host.
type MMIOWindowConfig struct {
	DevicePath string `mapstructure:"device_path" yaml:"device_path"`
	Offset     int64  `mapstructure:"offset" yaml:"offset"`
	Size       int64  `mapstructure:"size" validate:"omitempty,gt=0" yaml:"size"`
}

// VersionBlobConfig describes one version-query blob: the probe command
// that refreshes it and the file its readable payload is read from.
type VersionBlobConfig struct {
	BlobID       string `mapstructure:"blob_id" validate:"required" yaml:"blob_id"`
	ProbeCommand string `mapstructure:"probe_command" validate:"required" yaml:"probe_command"`
	ImagePath    string `mapstructure:"image_path" validate:"required" yaml:"image_path"`
}

// AuditConfig configures the bbolt-backed audit log of completed FSM
// transitions.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DBPath  string `mapstructure:"db_path" yaml:"db_path"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		cfg := GetDefaultConfig()
		ApplyDefaults(cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration failed validation: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error when the
// requested file does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Create a YAML config file there, or point at an existing file:\n"+
				"  blobflashd start --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation plus the cross-field checks that
// validator tags alone can't express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		return fmt.Errorf("audit.db_path is required when audit.enabled is true")
	}
	if !cfg.Transports.BT && !cfg.Transports.P2A && !cfg.Transports.LPC {
		return fmt.Errorf("transports: at least one of bt, p2a, lpc must be enabled")
	}
	if cfg.Transports.LPC && cfg.Transports.LPCWindow.DevicePath == "" {
		return fmt.Errorf("transports.lpc_window.device_path is required when transports.lpc is enabled")
	}

	seen := make(map[string]bool, len(cfg.Versions))
	for _, vb := range cfg.Versions {
		if seen[vb.BlobID] {
			return fmt.Errorf("versions: duplicate blob_id %q", vb.BlobID)
		}
		seen[vb.BlobID] = true
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BLOBFLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blobflashd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "blobflashd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default path.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the directory blobflashd reads its default config from.
func GetConfigDir() string {
	return getConfigDir()
}
