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
	c.normalizeTranslation()
	c.normalizeExtraction()
	c.normalizeConsolidation()
	c.normalizeCache()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translation.TargetLanguage))
	if c.Translation.TargetLanguage == "" {
		c.Translation.TargetLanguage = defaultTargetLanguage
	}
	c.Translation.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translation.SourceLanguage))
	if c.Translation.SourceLanguage == "" {
		c.Translation.SourceLanguage = defaultSourceLanguage
	}
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.APIKey == "" {
		if value, ok := os.LookupEnv("TSUMUGI_EXTRACTION_API_KEY"); ok {
			c.Extraction.APIKey = value
		}
	}
	c.Extraction.APIKey = strings.TrimSpace(c.Extraction.APIKey)
	c.Extraction.BaseURL = strings.TrimSpace(c.Extraction.BaseURL)
	if c.Extraction.BaseURL == "" {
		c.Extraction.BaseURL = defaultExtractionBaseURL
	}
	c.Extraction.Model = strings.TrimSpace(c.Extraction.Model)
	if c.Extraction.Model == "" {
		c.Extraction.Model = defaultExtractionModel
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = defaultExtractionTimeout
	}
}

func (c *Config) normalizeConsolidation() {
	if c.Consolidation.MergeBonus == 0 {
		c.Consolidation.MergeBonus = defaultMergeBonus
	}
	if c.Consolidation.MinConfidence == 0 {
		c.Consolidation.MinConfidence = defaultMinConfidence
	}
	if len(c.Consolidation.CommonWords) == 0 {
		c.Consolidation.CommonWords = append([]string(nil), defaultCommonWords...)
	}
	cleaned := c.Consolidation.CommonWords[:0]
	for _, word := range c.Consolidation.CommonWords {
		word = strings.TrimSpace(word)
		if word != "" {
			cleaned = append(cleaned, word)
		}
	}
	c.Consolidation.CommonWords = cleaned
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	c.Cache.Target = strings.TrimSpace(c.Cache.Target)
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxReextracts <= 0 {
		c.Workflow.MaxReextracts = defaultMaxReextracts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
