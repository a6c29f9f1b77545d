package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.CaseDB, err = expandPath(c.Paths.CaseDB); err != nil {
		return fmt.Errorf("paths.case_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SpoolDir, err = expandPath(c.Paths.SpoolDir); err != nil {
		return fmt.Errorf("paths.spool_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	var err error
	c.Engine.BinaryPath = strings.TrimSpace(c.Engine.BinaryPath)
	if c.Engine.BinaryPath == "" {
		if value, ok := os.LookupEnv("WHITTLE_ENGINE"); ok {
			c.Engine.BinaryPath = strings.TrimSpace(value)
		}
	}
	if c.Engine.BinaryPath != "" {
		if c.Engine.BinaryPath, err = expandPath(c.Engine.BinaryPath); err != nil {
			return fmt.Errorf("engine.binary_path: %w", err)
		}
	}

	c.Engine.FilterMode = strings.ToLower(strings.TrimSpace(c.Engine.FilterMode))
	if c.Engine.FilterMode == "" {
		c.Engine.FilterMode = FilterOff
	}

	if len(c.Engine.Extensions) > 0 {
		exts := make([]string, 0, len(c.Engine.Extensions))
		seen := make(map[string]struct{}, len(c.Engine.Extensions))
		for _, ext := range c.Engine.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			normalized = strings.TrimPrefix(normalized, ".")
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		c.Engine.Extensions = exts
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
