// Package config handles configuration loading and validation for netforensic.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"netforensic/internal/analysis"
	"netforensic/internal/logging"
	"netforensic/internal/retention"
	"netforensic/internal/tshark"
)

// Config is the complete service configuration. It is built once at
// startup and passed to each component; nothing reads it from globals.
type Config struct {
	Server  ServerConfig        `toml:"server" yaml:"server" json:"server"`
	Storage StorageConfig       `toml:"storage" yaml:"storage" json:"storage"`
	Tshark  TsharkConfig        `toml:"tshark" yaml:"tshark" json:"tshark"`
	Logging LoggingConfig       `toml:"logging" yaml:"logging" json:"logging"`
	Risk    analysis.RiskConfig `toml:"risk" yaml:"risk" json:"risk"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr                    string `toml:"addr" yaml:"addr" json:"addr"`
	MaxUploadBytes          int64  `toml:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`
	GenerateReportOnAnalyze bool   `toml:"generate_report_on_analyze" yaml:"generate_report_on_analyze" json:"generate_report_on_analyze"`
}

// StorageConfig configures the upload/report directory.
type StorageConfig struct {
	Dir               string   `toml:"dir" yaml:"dir" json:"dir"`
	Retention         Duration `toml:"retention" yaml:"retention" json:"retention"`
	AllowedExtensions []string `toml:"allowed_extensions" yaml:"allowed_extensions" json:"allowed_extensions"`
}

// TsharkConfig configures the external dissector.
type TsharkConfig struct {
	Path    string   `toml:"path" yaml:"path" json:"path"`
	Timeout Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                    ":8000",
			MaxUploadBytes:          512 << 20,
			GenerateReportOnAnalyze: true,
		},
		Storage: StorageConfig{
			Dir:               "uploads",
			Retention:         Duration(retention.DefaultMaxAge),
			AllowedExtensions: []string{".pcap", ".pcapng"},
		},
		Tshark: TsharkConfig{
			Path:    tshark.DefaultPath(),
			Timeout: Duration(tshark.DefaultTimeout),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Risk: analysis.DefaultRiskConfig(),
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TSHARK_PATH"); v != "" {
		c.Tshark.Path = v
	}
	if v := os.Getenv("NETFORENSIC_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("NETFORENSIC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("NETFORENSIC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if c.Storage.Retention <= 0 {
		errs = append(errs, errors.New("storage.retention must be positive"))
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("storage.allowed_extensions must not be empty"))
	}
	for _, ext := range c.Storage.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("storage.allowed_extensions: %q must look like \".pcap\"", ext))
		}
	}
	if c.Tshark.Path == "" {
		errs = append(errs, errors.New("tshark.path is required"))
	}
	if c.Tshark.Timeout <= 0 {
		errs = append(errs, errors.New("tshark.timeout must be positive"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format: %q must be text or json", c.Logging.Format))
	}

	markers := map[string][]string{
		"risk.critical_markers":        c.Risk.CriticalMarkers,
		"risk.warning_markers":         c.Risk.WarningMarkers,
		"risk.legacy_markers":          c.Risk.LegacyMarkers,
		"risk.name_resolution_markers": c.Risk.NameResolutionMarkers,
	}
	for field, list := range markers {
		for _, m := range list {
			if strings.TrimSpace(m) == "" {
				errs = append(errs, fmt.Errorf("%s: empty marker", field))
				break
			}
		}
	}
	if c.Risk.NameResolutionMaxLines < 1 {
		errs = append(errs, errors.New("risk.name_resolution_max_lines must be at least 1"))
	}

	return errors.Join(errs...)
}

// LoggerConfig converts the logging section for the logging package.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	return cfg
}

// Duration is a time.Duration written as "90s" or "30m" in config files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (TOML, JSON).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
