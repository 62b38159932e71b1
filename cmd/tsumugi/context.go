package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tsumugi/internal/config"
	"tsumugi/internal/consolidate"
	"tsumugi/internal/contextcache"
	"tsumugi/internal/extraction"
	"tsumugi/internal/logging"
	"tsumugi/internal/review"
	"tsumugi/internal/series"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", filepath.Join(cfg.Paths.LogDir, "tsumugi.log")},
	})
}

// newWorkflow assembles the processing pipeline from configuration: the
// extraction provider pair, the consolidator, the cache coordinator, and the
// series resolver.
func (c *commandContext) newWorkflow(cfg *config.Config, reviewer review.Reviewer, logger *slog.Logger) *review.Workflow {
	heuristic := extraction.NewHeuristicProvider(cfg.Consolidation.CommonWords)

	var provider extraction.Provider = heuristic
	var fallback extraction.Provider
	if cfg.Extraction.APIKey != "" {
		provider = extraction.NewSemanticProvider(extraction.NewClient(extraction.ClientConfig{
			APIKey:         cfg.Extraction.APIKey,
			BaseURL:        cfg.Extraction.BaseURL,
			Model:          cfg.Extraction.Model,
			TimeoutSeconds: cfg.Extraction.TimeoutSeconds,
		}))
		fallback = heuristic
	}

	var cache *contextcache.Coordinator
	if cfg.Cache.Enabled {
		backend := contextcache.NewFileBackend(filepath.Join(cfg.Paths.LibraryDir, ".staging"))
		cache = contextcache.NewCoordinator(
			backend,
			filepath.Join(cfg.Paths.LibraryDir, ".cache_handles.json"),
			cfg.Cache.Target,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			logger,
		)
	}

	return review.New(review.Options{
		LibraryRoot:    cfg.Paths.LibraryDir,
		SourceLanguage: cfg.Translation.SourceLanguage,
		TargetLanguage: cfg.Translation.TargetLanguage,
		MaxReextracts:  cfg.Workflow.MaxReextracts,
	}, review.Deps{
		Provider:     provider,
		Fallback:     fallback,
		Consolidator: consolidate.New(consolidate.Options{
			MergeBonus:    cfg.Consolidation.MergeBonus,
			MinConfidence: cfg.Consolidation.MinConfidence,
			CommonWords:   cfg.Consolidation.CommonWords,
		}, logger),
		Cache:    cache,
		Resolver: series.NewResolver(cfg.Paths.LibraryDir, logger),
		Reviewer: reviewer,
		Logger:   logger,
	})
}
