package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateNormalize(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateMigration(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.PublicBaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("server.public_base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.public_base_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("server.public_base_url must include a host")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		return errors.New("fetch.max_bytes must be positive")
	}
	return nil
}

func (c *Config) validateNormalize() error {
	if c.Normalize.MaxDimension <= 0 {
		return errors.New("normalize.max_dimension must be positive")
	}
	if c.Normalize.JPEGQuality < 1 || c.Normalize.JPEGQuality > 100 {
		return errors.New("normalize.jpeg_quality must be between 1 and 100")
	}
	if c.Normalize.WebPQuality < 1 || c.Normalize.WebPQuality > 100 {
		return errors.New("normalize.webp_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.MaxBytes <= 0 {
		return errors.New("archive.max_bytes must be positive")
	}
	if c.Archive.MaxEntries <= 0 {
		return errors.New("archive.max_entries must be positive")
	}
	if c.Archive.CleanupDelaySeconds < 0 {
		return errors.New("archive.cleanup_delay_seconds must be >= 0")
	}
	if c.Archive.OrphanMaxAgeSeconds <= 0 {
		return errors.New("archive.orphan_max_age_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMigration() error {
	if c.Migration.BatchSize <= 0 {
		return errors.New("migration.batch_size must be positive")
	}
	if c.Migration.BatchPauseMS < 0 {
		return errors.New("migration.batch_pause_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
