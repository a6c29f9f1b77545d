package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database location configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	CaseDB   string `toml:"case_db"`
	LogDir   string `toml:"log_dir"`
	SpoolDir string `toml:"spool_dir"`
}

// Engine contains configuration for the external carving engine.
type Engine struct {
	BinaryPath     string   `toml:"binary_path"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	KeepCorrupted  bool     `toml:"keep_corrupted_files"`
	FilterMode     string   `toml:"filter_mode"`
	Extensions     []string `toml:"extensions"`
}

// Carving contains configuration for job execution.
type Carving struct {
	Workers         int `toml:"workers"`
	StaleAfterHours int `toml:"stale_after_hours"`
}

// Spool contains configuration for watch-mode intake.
type Spool struct {
	SettleSeconds int `toml:"settle_seconds"`
	BatchSeconds  int `toml:"batch_seconds"`
}

// Monitor contains configuration for the block-device attach monitor.
type Monitor struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobEvents      bool   `toml:"job_events"`
	UnitErrors     bool   `toml:"unit_errors"`
	DeviceEvents   bool   `toml:"device_events"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for whittle.
//
// Configuration sections by subsystem:
//   - Paths: work/log/spool directories and the case database location
//   - Engine: carving engine binary, timeout, and recovery options
//   - Carving: worker concurrency and workspace hygiene
//   - Spool: watch-mode intake timing
//   - Monitor: block-device attach monitoring
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Carving       Carving       `toml:"carving"`
	Spool         Spool         `toml:"spool"`
	Monitor       Monitor       `toml:"monitor"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// Filter modes accepted by engine.filter_mode.
const (
	FilterOff     = "off"
	FilterInclude = "include"
	FilterExclude = "exclude"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/whittle/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("whittle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// OutputRoot returns the directory under which per-job output workspaces live.
func (c *Config) OutputRoot() string {
	return filepath.Join(c.Paths.WorkDir, "output")
}

// TempRoot returns the directory under which per-job scratch workspaces live.
func (c *Config) TempRoot() string {
	return filepath.Join(c.Paths.WorkDir, "temp")
}

// EnsureDirectories creates required directories for operation. The spool
// directory is created on a best-effort basis because it is only used in
// watch mode and may live on removable storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.OutputRoot(), c.TempRoot(), c.Paths.LogDir, filepath.Dir(c.Paths.CaseDB)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.SpoolDir) != "" {
		_ = os.MkdirAll(c.Paths.SpoolDir, 0o755)
	}
	return nil
}

// EngineBinary returns the carving engine executable name searched on PATH
// when engine.binary_path is not set.
func (c *Config) EngineBinary() string {
	return "photorec"
}

// EngineCommand returns the configured engine binary path, falling back to
// the PATH lookup name when engine.binary_path is unset.
func (c *Config) EngineCommand() string {
	if v := strings.TrimSpace(c.Engine.BinaryPath); v != "" {
		return v
	}
	return c.EngineBinary()
}

// FidentifyBinary returns the optional file-identification helper shipped with
// the carving engine suite.
func (c *Config) FidentifyBinary() string {
	return "fidentify"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
