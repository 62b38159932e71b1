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
	if err := c.validateConsolidation(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateConsolidation() error {
	if c.Consolidation.MergeBonus < 0 || c.Consolidation.MergeBonus > 1 {
		return errors.New("consolidation.merge_bonus must be between 0 and 1")
	}
	if c.Consolidation.MinConfidence < 0 || c.Consolidation.MinConfidence > 1 {
		return errors.New("consolidation.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTLSeconds <= 0 {
		return errors.New("cache.ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
