package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("LLM.Provider = %q, want ollama", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "llama2" {
		t.Errorf("LLM.Model = %q, want llama2", cfg.LLM.Model)
	}
	if cfg.Search.SimilarityThreshold != 0.5 {
		t.Errorf("Search.SimilarityThreshold = %v, want 0.5", cfg.Search.SimilarityThreshold)
	}
	if cfg.Storage.MaintenanceIntervalDays != 7 {
		t.Errorf("Storage.MaintenanceIntervalDays = %d, want 7", cfg.Storage.MaintenanceIntervalDays)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.LLM.Provider)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load (second read): %v", err)
	}
	if reloaded.LLM.Model != cfg.LLM.Model {
		t.Errorf("Model = %q, want %q", reloaded.LLM.Model, cfg.LLM.Model)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.LLM.Model = "mistral"
	cfg.Search.MaxResults = 25
	cfg.Privacy.Contains = append(cfg.Privacy.Contains, "ssn")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.Model != "mistral" {
		t.Errorf("LLM.Model = %q, want mistral", loaded.LLM.Model)
	}
	if loaded.Search.MaxResults != 25 {
		t.Errorf("Search.MaxResults = %d, want 25", loaded.Search.MaxResults)
	}
	found := false
	for _, p := range loaded.Privacy.Contains {
		if p == "ssn" {
			found = true
		}
	}
	if !found {
		t.Errorf("Privacy.Contains = %v, want to contain %q", loaded.Privacy.Contains, "ssn")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt the file with unparsable TOML.
	if err := os.WriteFile(path, []byte("this is not [valid toml"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error loading corrupt config")
	}
}
