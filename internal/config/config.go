// Package config handles loading rail.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/amonks/rail/internal/paths"
)

const (
	// ProjectFileName is the per-directory config file.
	ProjectFileName = "rail.toml"
	// EnvWorkerURL overrides worker.url.
	EnvWorkerURL = "RAIL_WORKER_URL"
	// EnvNtfyURL overrides notify.ntfy-url.
	EnvNtfyURL = "NTFY_URL"
)

// Config represents the rail.toml configuration file.
type Config struct {
	Worker   Worker   `toml:"worker"`
	Monitor  Monitor  `toml:"monitor"`
	Defaults Defaults `toml:"defaults"`
	Notify   Notify   `toml:"notify"`
}

// Worker contains worker connection settings.
type Worker struct {
	// URL is the worker base URL, host:port, or port.
	URL string `toml:"url"`
	// RequestTimeout bounds each HTTP request.
	RequestTimeout Duration `toml:"request-timeout"`
}

// Monitor contains task polling settings.
type Monitor struct {
	Interval    Duration `toml:"interval"`
	PollTimeout Duration `toml:"poll-timeout"`
}

// Defaults seeds new sessions.
type Defaults struct {
	Mode    string `toml:"mode"`
	Account int64  `toml:"account"`
	Time    string `toml:"time"`
}

// Notify configures push notifications for finished tasks.
type Notify struct {
	NtfyURL string `toml:"ntfy-url"`
}

// Duration is a time.Duration written as a string like "1s" or "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", string(text))
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads configuration from dir and the global config file, then
// applies environment overrides. Returns an empty config if no config files
// exist.
func Load(dir string) (*Config, error) {
	globalPath, err := GlobalConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, _, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, projectMeta)
	applyEnv(merged)
	return merged, nil
}

// GlobalConfigPath returns ~/.config/rail/config.toml.
func GlobalConfigPath() (string, error) {
	dir, err := paths.DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: unknown key %s", path, undecoded[0])
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Worker.URL = mergeString(projectMeta.IsDefined("worker", "url"), projectCfg.Worker.URL, globalCfg.Worker.URL)
	merged.Worker.RequestTimeout = mergeValue(projectMeta.IsDefined("worker", "request-timeout"), projectCfg.Worker.RequestTimeout, globalCfg.Worker.RequestTimeout)
	merged.Monitor.Interval = mergeValue(projectMeta.IsDefined("monitor", "interval"), projectCfg.Monitor.Interval, globalCfg.Monitor.Interval)
	merged.Monitor.PollTimeout = mergeValue(projectMeta.IsDefined("monitor", "poll-timeout"), projectCfg.Monitor.PollTimeout, globalCfg.Monitor.PollTimeout)
	merged.Defaults.Mode = mergeString(projectMeta.IsDefined("defaults", "mode"), projectCfg.Defaults.Mode, globalCfg.Defaults.Mode)
	merged.Defaults.Account = mergeValue(projectMeta.IsDefined("defaults", "account"), projectCfg.Defaults.Account, globalCfg.Defaults.Account)
	merged.Defaults.Time = mergeString(projectMeta.IsDefined("defaults", "time"), projectCfg.Defaults.Time, globalCfg.Defaults.Time)
	merged.Notify.NtfyURL = mergeString(projectMeta.IsDefined("notify", "ntfy-url"), projectCfg.Notify.NtfyURL, globalCfg.Notify.NtfyURL)

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	return strings.TrimSpace(mergeValue(projectDefined, projectValue, globalValue))
}

func mergeValue[T any](projectDefined bool, projectValue, globalValue T) T {
	if projectDefined {
		return projectValue
	}
	return globalValue
}

func applyEnv(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv(EnvWorkerURL)); value != "" {
		cfg.Worker.URL = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvNtfyURL)); value != "" {
		cfg.Notify.NtfyURL = value
	}
}
