package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"ENV"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32  `mapstructure:"DB_MIN_CONNS"`
	ResultsDir      string `mapstructure:"RESULTS_DIR"`
	PatternsFile    string `mapstructure:"PATTERNS_FILE"`
	CuesFile        string `mapstructure:"CUES_FILE"`
	ConceptsFile    string `mapstructure:"CONCEPTS_FILE"`
	NotesDir        string `mapstructure:"NOTES_DIR"`
	ExclusionWindow int    `mapstructure:"EXCLUSION_WINDOW"`
	ScanWorkers     int    `mapstructure:"SCAN_WORKERS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 8)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("RESULTS_DIR", "results")
	v.SetDefault("PATTERNS_FILE", "keywords_regex_precise.csv")
	v.SetDefault("EXCLUSION_WINDOW", 60)
	v.SetDefault("SCAN_WORKERS", 4)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("RESULTS_DIR")
	v.BindEnv("PATTERNS_FILE")
	v.BindEnv("CUES_FILE")
	v.BindEnv("CONCEPTS_FILE")
	v.BindEnv("NOTES_DIR")
	v.BindEnv("EXCLUSION_WINDOW")
	v.BindEnv("SCAN_WORKERS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValidateCommon checks settings every subcommand depends on.
func (c *Config) ValidateCommon() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("RESULTS_DIR must not be empty")
	}
	return nil
}

// ValidateDB checks that a database source is usable. The keywords
// subcommand skips this when NOTES_DIR points at partitioned files.
func (c *Config) ValidateDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool sizing: min=%d max=%d", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// ValidateDrug checks the drug-rule extractor configuration. The
// medication concept set is supplied, never inferred; a missing file is
// a configuration error, not an empty cohort.
func (c *Config) ValidateDrug() error {
	if c.ConceptsFile == "" {
		return fmt.Errorf("CONCEPTS_FILE is required for the drug rule")
	}
	if _, err := os.Stat(c.ConceptsFile); err != nil {
		return fmt.Errorf("CONCEPTS_FILE: %w", err)
	}
	return nil
}

// ValidateKeywords checks the keyword-engine configuration.
func (c *Config) ValidateKeywords() error {
	if c.PatternsFile == "" {
		return fmt.Errorf("PATTERNS_FILE must not be empty")
	}
	if _, err := os.Stat(c.PatternsFile); err != nil {
		return fmt.Errorf("PATTERNS_FILE: %w", err)
	}
	if c.ExclusionWindow <= 0 {
		return fmt.Errorf("EXCLUSION_WINDOW must be positive, got %d", c.ExclusionWindow)
	}
	if c.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1, got %d", c.ScanWorkers)
	}
	if c.NotesDir == "" {
		return c.ValidateDB()
	}
	if _, err := os.Stat(c.NotesDir); err != nil {
		return fmt.Errorf("NOTES_DIR: %w", err)
	}
	return nil
}
