package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ResultsDir != "results" {
		t.Errorf("ResultsDir = %q, want results", cfg.ResultsDir)
	}
	if cfg.ExclusionWindow != 60 {
		t.Errorf("ExclusionWindow = %d, want 60", cfg.ExclusionWindow)
	}
	if cfg.ScanWorkers != 4 {
		t.Errorf("ScanWorkers = %d, want 4", cfg.ScanWorkers)
	}
}

func TestValidateDBRequiresURL(t *testing.T) {
	cfg := &Config{DBMaxConns: 8, DBMinConns: 2}
	if err := cfg.ValidateDB(); err == nil {
		t.Error("expected error for missing DATABASE_URL")
	}
	cfg.DatabaseURL = "postgres://localhost/cdw"
	if err := cfg.ValidateDB(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateDrugRequiresConceptsFile(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateDrug(); err == nil {
		t.Error("expected error for unset CONCEPTS_FILE")
	}

	cfg.ConceptsFile = filepath.Join(t.TempDir(), "missing.csv")
	if err := cfg.ValidateDrug(); err == nil {
		t.Error("expected error for missing concepts file")
	}

	path := filepath.Join(t.TempDir(), "concepts.csv")
	if err := os.WriteFile(path, []byte("concept_id\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.ConceptsFile = path
	if err := cfg.ValidateDrug(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateKeywords(t *testing.T) {
	patterns := filepath.Join(t.TempDir(), "patterns.csv")
	if err := os.WriteFile(patterns, []byte("Root,Regex\nalcoholic,alcoholic\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		PatternsFile:    patterns,
		ExclusionWindow: 60,
		ScanWorkers:     4,
		NotesDir:        t.TempDir(),
	}
	if err := cfg.ValidateKeywords(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.ExclusionWindow = 0
	if err := cfg.ValidateKeywords(); err == nil {
		t.Error("expected error for zero window")
	}
	cfg.ExclusionWindow = 60

	// Without NOTES_DIR the note table is read from the database.
	cfg.NotesDir = ""
	if err := cfg.ValidateKeywords(); err == nil {
		t.Error("expected error when neither NOTES_DIR nor DATABASE_URL is set")
	}
	cfg.DatabaseURL = "postgres://localhost/cdw"
	cfg.DBMaxConns = 8
	if err := cfg.ValidateKeywords(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
