package config

const (
	defaultLibraryDir        = "~/.local/share/tsumugi/library"
	defaultLogDir            = "~/.local/share/tsumugi/logs"
	defaultTargetLanguage    = "en"
	defaultSourceLanguage    = "ja"
	defaultExtractionBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultExtractionModel   = "google/gemini-3-flash-preview"
	defaultExtractionTimeout = 60
	defaultMergeBonus        = 0.1
	defaultMinConfidence     = 0.3
	defaultCacheTTLSeconds   = 300
	defaultMaxReextracts     = 3
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// defaultCommonWords seeds the consolidation filter with capitalized words
// that routinely open translated sentences but are never names.
var defaultCommonWords = []string{
	"The", "A", "An", "And", "But", "Then", "When", "While", "After",
	"Before", "She", "He", "They", "It", "We", "You", "His", "Her",
	"Mr", "Mrs", "Ms", "Miss", "Sir", "Madam", "Senpai", "Sensei",
	"Chapter", "Volume", "Prologue", "Epilogue",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Translation: Translation{
			TargetLanguage: defaultTargetLanguage,
			SourceLanguage: defaultSourceLanguage,
		},
		Extraction: Extraction{
			BaseURL:        defaultExtractionBaseURL,
			Model:          defaultExtractionModel,
			TimeoutSeconds: defaultExtractionTimeout,
		},
		Consolidation: Consolidation{
			MergeBonus:    defaultMergeBonus,
			MinConfidence: defaultMinConfidence,
			CommonWords:   append([]string(nil), defaultCommonWords...),
		},
		Cache: Cache{
			Enabled:    true,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Workflow: Workflow{
			MaxReextracts: defaultMaxReextracts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
