/*
Package config manages TOML config for codegram runs.

A config file holds four sections: corpus preprocessing, the train/held-out split,
model order selection and evaluation. Missing keys keep their builtin defaults and a
malformed file is recovered section by section where possible.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bastiangx/codegram/internal/utils"
	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/bastiangx/codegram/pkg/eval"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Corpus CorpusConfig `toml:"corpus"`
	Split  SplitConfig  `toml:"split"`
	Model  ModelConfig  `toml:"model"`
	Eval   EvalConfig   `toml:"eval"`
}

// CorpusConfig holds reading and preprocessing options.
type CorpusConfig struct {
	// SkipColumns drops leading CSV fields such as the method name.
	SkipColumns           int     `toml:"skip_columns"`
	Dedupe                bool    `toml:"dedupe"`
	ASCIIOnly             bool    `toml:"ascii_only"`
	LowerPercentile       float64 `toml:"lower_percentile"`
	UpperPercentile       float64 `toml:"upper_percentile"`
	NormalizeIdentifiers  bool    `toml:"normalize_identifiers"`
	IdentifierPlaceholder string  `toml:"identifier_placeholder"`
}

// SplitConfig holds train/held-out split options.
type SplitConfig struct {
	HeldoutEvery    int     `toml:"heldout_every"`
	Random          bool    `toml:"random"`
	HeldoutFraction float64 `toml:"heldout_fraction"`
	Seed            uint64  `toml:"seed"`
}

// ModelConfig holds order selection options.
type ModelConfig struct {
	MinOrder int `toml:"min_order"`
	MaxOrder int `toml:"max_order"`
	// Unseen is "skip" or "fail".
	Unseen  string `toml:"unseen"`
	Workers int    `toml:"workers"`
	// MinCoverage is the smallest fraction of held-out events a candidate order must score.
	MinCoverage float64 `toml:"min_coverage"`
}

// EvalConfig holds evaluation harness options.
type EvalConfig struct {
	// SeedTokens of 0 seeds with n-1 tokens, -1 with the whole method.
	SeedTokens int `toml:"seed_tokens"`
	MaxLength  int `toml:"max_length"`
	// Denominator is "shorter" or "longer".
	Denominator string `toml:"denominator"`
	ResultsDB   string `toml:"results_db"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "codegram")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "codegram")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/codegram/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			SkipColumns:           0,
			Dedupe:                true,
			ASCIIOnly:             true,
			LowerPercentile:       5,
			UpperPercentile:       95,
			NormalizeIdentifiers:  false,
			IdentifierPlaceholder: corpus.DefaultIdentifierPlaceholder,
		},
		Split: SplitConfig{
			HeldoutEvery:    5,
			Random:          false,
			HeldoutFraction: 0.2,
			Seed:            1,
		},
		Model: ModelConfig{
			MinOrder:    1,
			MaxOrder:    10,
			Unseen:      ngram.SkipUnseen.String(),
			Workers:     0,
			MinCoverage: 0,
		},
		Eval: EvalConfig{
			SeedTokens:  0,
			MaxLength:   ngram.DefaultMaxLength,
			Denominator: eval.ShorterLength.String(),
			ResultsDB:   "",
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "corpus"); ok {
		extractCorpusConfig(section, &config.Corpus)
	}
	if section, ok := utils.ExtractSection(tempConfig, "split"); ok {
		extractSplitConfig(section, &config.Split)
	}
	if section, ok := utils.ExtractSection(tempConfig, "model"); ok {
		extractModelConfig(section, &config.Model)
	}
	if section, ok := utils.ExtractSection(tempConfig, "eval"); ok {
		extractEvalConfig(section, &config.Eval)
	}
	return config, nil
}

// extractCorpusConfig extracts corpus configuration from a map
func extractCorpusConfig(data map[string]any, c *CorpusConfig) {
	if val, ok := utils.ExtractInt64(data, "skip_columns"); ok {
		c.SkipColumns = val
	}
	if val, ok := utils.ExtractBool(data, "dedupe"); ok {
		c.Dedupe = val
	}
	if val, ok := utils.ExtractBool(data, "ascii_only"); ok {
		c.ASCIIOnly = val
	}
	if val, ok := utils.ExtractFloat64(data, "lower_percentile"); ok {
		c.LowerPercentile = val
	}
	if val, ok := utils.ExtractFloat64(data, "upper_percentile"); ok {
		c.UpperPercentile = val
	}
	if val, ok := utils.ExtractBool(data, "normalize_identifiers"); ok {
		c.NormalizeIdentifiers = val
	}
	if val, ok := utils.ExtractString(data, "identifier_placeholder"); ok {
		c.IdentifierPlaceholder = val
	}
}

// extractSplitConfig extracts split configuration from a map
func extractSplitConfig(data map[string]any, s *SplitConfig) {
	if val, ok := utils.ExtractInt64(data, "heldout_every"); ok {
		s.HeldoutEvery = val
	}
	if val, ok := utils.ExtractBool(data, "random"); ok {
		s.Random = val
	}
	if val, ok := utils.ExtractFloat64(data, "heldout_fraction"); ok {
		s.HeldoutFraction = val
	}
	if val, ok := utils.ExtractInt64(data, "seed"); ok && val >= 0 {
		s.Seed = uint64(val)
	}
}

// extractModelConfig extracts model configuration from a map
func extractModelConfig(data map[string]any, m *ModelConfig) {
	if val, ok := utils.ExtractInt64(data, "min_order"); ok {
		m.MinOrder = val
	}
	if val, ok := utils.ExtractInt64(data, "max_order"); ok {
		m.MaxOrder = val
	}
	if val, ok := utils.ExtractString(data, "unseen"); ok {
		m.Unseen = val
	}
	if val, ok := utils.ExtractInt64(data, "workers"); ok {
		m.Workers = val
	}
	if val, ok := utils.ExtractFloat64(data, "min_coverage"); ok {
		m.MinCoverage = val
	}
}

// extractEvalConfig extracts eval configuration from a map
func extractEvalConfig(data map[string]any, e *EvalConfig) {
	if val, ok := utils.ExtractInt64(data, "seed_tokens"); ok {
		e.SeedTokens = val
	}
	if val, ok := utils.ExtractInt64(data, "max_length"); ok {
		e.MaxLength = val
	}
	if val, ok := utils.ExtractString(data, "denominator"); ok {
		e.Denominator = val
	}
	if val, ok := utils.ExtractString(data, "results_db"); ok {
		e.ResultsDB = val
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Corpus.SkipColumns < 0 {
		return fmt.Errorf("corpus.skip_columns must not be negative, got %d", c.Corpus.SkipColumns)
	}
	if c.Corpus.LowerPercentile < 0 || c.Corpus.UpperPercentile > 100 || c.Corpus.LowerPercentile > c.Corpus.UpperPercentile {
		return fmt.Errorf("corpus percentile band [%g, %g] is invalid", c.Corpus.LowerPercentile, c.Corpus.UpperPercentile)
	}
	if c.Split.HeldoutEvery < 1 {
		return fmt.Errorf("split.heldout_every must be at least 1, got %d", c.Split.HeldoutEvery)
	}
	if c.Split.Random && (c.Split.HeldoutFraction <= 0 || c.Split.HeldoutFraction >= 1) {
		return fmt.Errorf("split.heldout_fraction must lie in (0, 1), got %g", c.Split.HeldoutFraction)
	}
	if c.Model.MinOrder < 1 || c.Model.MaxOrder < c.Model.MinOrder {
		return fmt.Errorf("model order range [%d, %d] is empty", c.Model.MinOrder, c.Model.MaxOrder)
	}
	if c.Model.MinCoverage < 0 || c.Model.MinCoverage > 1 {
		return fmt.Errorf("model.min_coverage must lie in [0, 1], got %g", c.Model.MinCoverage)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.EvalOptions(); err != nil {
		return err
	}
	return nil
}

// Preprocess returns the corpus filters described by the [corpus] section.
func (c *Config) Preprocess() corpus.Preprocess {
	return corpus.Preprocess{
		Dedupe:               c.Corpus.Dedupe,
		ASCIIOnly:            c.Corpus.ASCIIOnly,
		LowerPercentile:      c.Corpus.LowerPercentile,
		UpperPercentile:      c.Corpus.UpperPercentile,
		NormalizeIdentifiers: c.Corpus.NormalizeIdentifiers,
		Placeholder:          c.Corpus.IdentifierPlaceholder,
	}
}

// Policy parses model.unseen.
func (c *Config) Policy() (ngram.UnseenPolicy, error) {
	return ngram.ParseUnseenPolicy(c.Model.Unseen)
}

// EvalOptions builds harness options from the [eval] and [model] sections.
func (c *Config) EvalOptions() (eval.Options, error) {
	d, err := eval.ParseDenominator(c.Eval.Denominator)
	if err != nil {
		return eval.Options{}, err
	}
	p, err := c.Policy()
	if err != nil {
		return eval.Options{}, err
	}
	return eval.Options{
		SeedTokens:  c.Eval.SeedTokens,
		MaxLength:   c.Eval.MaxLength,
		Denominator: d,
		Policy:      p,
	}, nil
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOMLFile(config, defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
