// Package config loads and validates .algebras.config (spec.md §6), the
// sole external configuration surface of the engine. Loading follows the
// teacher's config/lokitfile.go shape: read file, yaml.Unmarshal, apply
// defaults, validate, resolve. Struct-tag validation is delegated to
// github.com/go-playground/validator/v10.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/algebras-go/algebras/internal/errs"
	"github.com/algebras-go/algebras/internal/locale"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the default configuration file name, per spec.md §6.
const DefaultFileName = ".algebras.config"

// rawLanguageEntry decodes one entry of the `languages` list, which is
// either a bare string or a single-entry {internal: destination} map
// (spec.md §3, §9). yaml.v3 decodes a bare scalar as !!str and a mapping
// as a map; we try the string form first since it's the common case.
type rawLanguageEntry struct {
	bare    string
	mapped  map[string]string
	isBare  bool
	isEmpty bool
}

func (r *rawLanguageEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.bare = value.Value
		r.isBare = true
		return nil
	case yaml.MappingNode:
		var m map[string]string
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("languages entry: %w", err)
		}
		if len(m) != 1 {
			return fmt.Errorf("languages entry: mapped form must have exactly one key, got %d", len(m))
		}
		r.mapped = m
		return nil
	default:
		r.isEmpty = true
		return nil
	}
}

func (r rawLanguageEntry) toEntry() (locale.Entry, error) {
	if r.isBare {
		return locale.Entry{Internal: r.bare, Destination: r.bare}, nil
	}
	for k, v := range r.mapped {
		return locale.Entry{Internal: k, Destination: v}, nil
	}
	return locale.Entry{}, fmt.Errorf("empty languages entry")
}

// PathRule is one entry of the deprecated `path_rules` list. A leading `!`
// marks an exclude glob.
type PathRule struct {
	Glob    string
	Exclude bool
}

func (p *PathRule) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if len(raw) > 0 && raw[0] == '!' {
		p.Exclude = true
		p.Glob = raw[1:]
	} else {
		p.Glob = raw
	}
	return nil
}

// SourceFileBinding maps one concrete source file path to a destination
// pattern containing the literal token %algebras_locale_code% (spec.md §3).
type SourceFileBinding struct {
	DestinationPath string `yaml:"destination_path" validate:"required"`
}

// APIConfig holds the `api.*` namespace.
type APIConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	GlossaryID       string `yaml:"glossary_id"`
	Prompt           string `yaml:"prompt"`
	NormalizeStrings *bool  `yaml:"normalize_strings"`
}

// NormalizeStringsOr returns the configured flag, defaulting to true
// (spec.md §6: "api.normalize_strings bool, default true").
func (a APIConfig) NormalizeStringsOr() bool {
	if a.NormalizeStrings == nil {
		return true
	}
	return *a.NormalizeStrings
}

// XLFConfig holds the `xlf.*` namespace.
type XLFConfig struct {
	DefaultTargetState string `yaml:"default_target_state"`
}

// POConfig holds the `po.*` namespace.
type POConfig struct {
	MarkFuzzy bool `yaml:"mark_fuzzy"`
}

// rawConfig is the literal YAML schema of .algebras.config.
type rawConfig struct {
	Languages             []rawLanguageEntry           `yaml:"languages"`
	SourceLanguage        string                       `yaml:"source_language"`
	SourceFiles           map[string]SourceFileBinding `yaml:"source_files"`
	PathRules             []PathRule                   `yaml:"path_rules"`
	API                   APIConfig                    `yaml:"api"`
	BatchSize             int                          `yaml:"batch_size"`
	MaxParallelBatches    int                          `yaml:"max_parallel_batches"`
	XLF                   XLFConfig                    `yaml:"xlf"`
	PO                    POConfig                     `yaml:"po"`
	Parse                 map[string]any               `yaml:"parse"` // reserved, out of scope
	RegenerateFromScratch bool                         `yaml:"regenerate_from_scratch"`
}

// Config is the resolved, validated configuration consumed by the rest of
// the engine.
type Config struct {
	Locales               *locale.Set
	SourceFiles           map[string]SourceFileBinding
	PathRules             []PathRule
	PathRulesDeprecated   bool
	API                   APIConfig
	BatchSize             int `validate:"min=1"`
	MaxParallelBatches    int `validate:"min=1"`
	XLFDefaultTargetState string
	POMarkFuzzy           bool
	RegenerateFromScratch bool
}

// structValidator checks Config's `validate` struct tags (BatchSize and
// MaxParallelBatches >= 1) after env overrides and defaults are resolved
// (SPEC_FULL.md §1.3).
var structValidator = validator.New()

// Load reads and validates the configuration file at path. For the two
// numeric knobs (spec.md §6) it applies environment-variable overrides,
// then defaults for whatever is still unset: env overrides only kick in
// when the config file omits the value, matching
// "overrides for the two numeric knobs when the config omits them".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindConfig, path, fmt.Errorf("reading config: %w", err))
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.New(errs.KindConfig, path, fmt.Errorf("parsing config: %w", err))
	}

	if len(raw.PathRules) > 0 {
		// Deprecated fallback, spec.md §6: "triggers a deprecation warning at load time."
		// The caller (orchestrator/CLI) is responsible for emitting the warning; we
		// just surface the flag.
	}

	entries := make([]locale.Entry, 0, len(raw.Languages))
	for i, rl := range raw.Languages {
		if rl.isEmpty {
			continue
		}
		e, err := rl.toEntry()
		if err != nil {
			return nil, errs.New(errs.KindConfig, path, fmt.Errorf("languages[%d]: %w", i, err))
		}
		entries = append(entries, e)
	}

	locales, err := locale.NewSet(entries, raw.SourceLanguage)
	if err != nil {
		return nil, errs.New(errs.KindConfig, path, err)
	}

	cfg := &Config{
		Locales:               locales,
		SourceFiles:           raw.SourceFiles,
		PathRules:             raw.PathRules,
		PathRulesDeprecated:   len(raw.PathRules) > 0,
		API:                   raw.API,
		BatchSize:             raw.BatchSize,
		MaxParallelBatches:    raw.MaxParallelBatches,
		XLFDefaultTargetState: raw.XLF.DefaultTargetState,
		POMarkFuzzy:           raw.PO.MarkFuzzy,
		RegenerateFromScratch: raw.RegenerateFromScratch,
	}

	applyDefaultsAndEnv(cfg)

	if err := structValidator.Struct(cfg); err != nil {
		return nil, errs.New(errs.KindConfig, path, fmt.Errorf("validating config: %w", err))
	}
	return cfg, nil
}

// applyDefaultsAndEnv first applies the ALGEBRAS_BATCH_SIZE /
// ALGEBRAS_MAX_PARALLEL_BATCHES env overrides, only when the config file
// left the value unset (spec.md §6), and then fills in defaults for anything
// still unset (batch_size=20, max_parallel_batches=5,
// xlf.default_target_state="translated").
func applyDefaultsAndEnv(cfg *Config) {
	const defaultBatchSize = 20
	const defaultMaxParallel = 5

	batchSizeSetByFile := cfg.BatchSize != 0
	maxParallelSetByFile := cfg.MaxParallelBatches != 0

	if !batchSizeSetByFile {
		if v := os.Getenv("ALGEBRAS_BATCH_SIZE"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 1 {
				cfg.BatchSize = n
			}
		}
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultBatchSize
	}

	if !maxParallelSetByFile {
		if v := os.Getenv("ALGEBRAS_MAX_PARALLEL_BATCHES"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 1 {
				cfg.MaxParallelBatches = n
			}
		}
	}
	if cfg.MaxParallelBatches < 1 {
		cfg.MaxParallelBatches = defaultMaxParallel
	}

	if cfg.XLFDefaultTargetState == "" {
		cfg.XLFDefaultTargetState = "translated"
	}
}

// APIKeyFromEnv reads ALGEBRAS_API_KEY, the credential passed to the
// Translator capability (spec.md §6). No package in this module calls it:
// the core never reads the key, and cmd/algebras's stub provider takes no
// credential.
func APIKeyFromEnv() string {
	return os.Getenv("ALGEBRAS_API_KEY")
}

// ResolvePath resolves the -f/--config-file flag against a default file
// name located in dir.
func ResolvePath(dir, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(dir, DefaultFileName)
}
