package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level TOML document, mirroring ~/.jotx/config.toml.
type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Search  SearchConfig  `toml:"search"`
	Storage StorageConfig `toml:"storage"`
	Privacy PrivacyConfig `toml:"privacy"`
	Logger  LoggerConfig  `toml:"logger"`
}

// LLMConfig names the model collaborator and its generation parameters.
type LLMConfig struct {
	Provider          string  `toml:"provider"` // "ollama" is the only shipped provider
	APIKey            string  `toml:"api_key,omitempty"`
	APIBase           string  `toml:"api_base"`
	Model             string  `toml:"model"`
	MaxTokens         int     `toml:"max_tokens"`
	Temperature       float32 `toml:"temperature"`
	MaxHistoryResults int     `toml:"max_history_results"`
}

// SearchConfig tunes the search executor and fingerprint cache.
type SearchConfig struct {
	SimilarityThreshold float32 `toml:"similarity_threshold"`
	MaxResults          int     `toml:"max_results"`
	FuzzyMatching       bool    `toml:"fuzzy_matching"`
}

// StorageConfig tunes maintenance cadence.
type StorageConfig struct {
	MaintenanceIntervalDays int    `toml:"maintenance_interval_days"`
	DatabasePath            string `toml:"database_path,omitempty"`
}

// PrivacyConfig is the built-in privacy filter's pattern set, merged with
// any plugin-contributed patterns at startup.
type PrivacyConfig struct {
	Contains     []string `toml:"contains,omitempty"`
	StartsWith   []string `toml:"starts_with,omitempty"`
	EndsWith     []string `toml:"ends_with,omitempty"`
	Regex        []string `toml:"regex,omitempty"`
	ExcludedDirs []string `toml:"excluded_dirs,omitempty"`
}

// LoggerConfig configures internal/infra/logger.New.
type LoggerConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
	Output string `toml:"output"` // stdout, stderr, or a file path
}

// Default returns the configuration a fresh install ships with, matching
// the values a first run writes to disk before the user edits anything.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:          "ollama",
			APIBase:           "http://localhost:11434",
			Model:             "llama2",
			MaxTokens:         500,
			Temperature:       0.7,
			MaxHistoryResults: 10,
		},
		Search: SearchConfig{
			SimilarityThreshold: 0.5,
			MaxResults:          10,
			FuzzyMatching:       true,
		},
		Storage: StorageConfig{
			MaintenanceIntervalDays: 7,
		},
		Privacy: PrivacyConfig{
			Contains: []string{"password", "secret", "api_key", "private_key", "token"},
			ExcludedDirs: []string{".ssh", ".gnupg", ".aws"},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Path returns the default config file location, $HOME/.jotx/config.toml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".jotx", "config.toml"), nil
}

// Load reads the config file at path, writing and returning the default
// configuration if no file exists yet.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		def := Default()
		if err := Save(path, def); err != nil {
			return def, err
		}
		return def, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as pretty-printed TOML, creating parent
// directories as needed.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
