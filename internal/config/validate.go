package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateCarving(); err != nil {
		return err
	}
	if err := c.validateSpool(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.CaseDB == "" {
		return errors.New("paths.case_db must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.TimeoutSeconds < 0 {
		return errors.New("engine.timeout_seconds must be >= 0 (0 disables the timeout)")
	}
	switch c.Engine.FilterMode {
	case FilterOff, FilterInclude, FilterExclude:
	default:
		return fmt.Errorf("engine.filter_mode must be one of %q, %q, %q", FilterOff, FilterInclude, FilterExclude)
	}
	return nil
}

func (c *Config) validateCarving() error {
	if c.Carving.Workers < 1 {
		return errors.New("carving.workers must be >= 1")
	}
	if c.Carving.StaleAfterHours < 1 {
		return errors.New("carving.stale_after_hours must be >= 1")
	}
	return nil
}

func (c *Config) validateSpool() error {
	if err := ensurePositiveMap(map[string]int{
		"spool.settle_seconds": c.Spool.SettleSeconds,
		"spool.batch_seconds":  c.Spool.BatchSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
