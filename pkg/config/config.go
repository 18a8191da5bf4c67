// Package config loads the optional configuration file the CLI maps onto
// the engine's explicit options. The library never reads config files
// itself. Loaded documents are validated against an embedded JSON schema
// before unmarshalling, so typos and wrong types fail loudly with a path to
// the offending key.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	koanfjson "github.com/knadh/koanf/parsers/json"
)

//go:embed schema.json
var schemaJSON []byte

// Config holds all configuration options.
type Config struct {
	Analysis   AnalysisConfig  `koanf:"analysis"`
	Thresholds ThresholdConfig `koanf:"thresholds"`
	Exclude    ExcludeConfig   `koanf:"exclude"`
	Output     OutputConfig    `koanf:"output"`
}

// AnalysisConfig bounds the catalog and the parse stage.
type AnalysisConfig struct {
	// Include holds doublestar globs. Empty means every recognized source
	// extension.
	Include []string `koanf:"include"`
	// MaxFiles caps the catalog.
	MaxFiles int `koanf:"max_files"`
	// MaxFileSize marks larger files failed without reading them.
	MaxFileSize int64 `koanf:"max_file_size"`
	// Concurrency caps parallel file parses. Zero means NumCPU times two.
	Concurrency int `koanf:"concurrency"`
	// FileTimeout bounds a single file's parse, as a duration string.
	FileTimeout string `koanf:"file_timeout"`
}

// ThresholdConfig defines the complexity flags.
type ThresholdConfig struct {
	CyclomaticComplexity int `koanf:"cyclomatic_complexity"`
	MaxFunctionLines     int `koanf:"max_function_lines"`
}

// ExcludeConfig defines directory exclusion.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs"`
	Gitignore bool     `koanf:"gitignore"`
}

// OutputConfig controls CLI presentation.
type OutputConfig struct {
	Format   string `koanf:"format"` // text, json, markdown, toon
	Color    bool   `koanf:"color"`
	Progress bool   `koanf:"progress"`
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxFiles:    100,
			MaxFileSize: 1 << 20,
			FileTimeout: "5s",
		},
		Thresholds: ThresholdConfig{
			CyclomaticComplexity: 10,
			MaxFunctionLines:     50,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				"node_modules", "vendor", "venv", ".venv", "__pycache__",
				"dist", "build", "target", ".git", "tmp",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			Progress: true,
		},
	}
}

// FileTimeoutDuration parses the configured file timeout.
func (c *Config) FileTimeoutDuration() (time.Duration, error) {
	if c.Analysis.FileTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Analysis.FileTimeout)
	if err != nil {
		return 0, fmt.Errorf("file_timeout: %w", err)
	}
	return d, nil
}

// searchNames lists the file names LoadOrDefault probes, in order.
var searchNames = []string{
	"helix.toml",
	".helix.toml",
	".helix.yaml",
	".helix.yml",
	".helix.json",
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("helix.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("helix.schema.json")
})

// Load reads and validates a configuration file. Unknown keys and wrong
// types are errors, not silent defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = koanfjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if _, err := cfg.FileTimeoutDuration(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// validate round-trips the loaded map through JSON so the schema checker
// sees canonical value types regardless of the source format.
func validate(raw map[string]any) error {
	sch, err := compileSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return err
	}
	return sch.Validate(doc)
}

// LoadOrDefault loads the first config file found in the working directory,
// or returns the defaults. A file that exists but fails to load is an error;
// only absence falls through.
func LoadOrDefault() (*Config, error) {
	for _, name := range searchNames {
		if _, err := os.Stat(name); err == nil {
			return Load(name)
		}
	}
	return DefaultConfig(), nil
}

// starter is the annotated config the init command writes.
const starter = `# helix configuration

[analysis]
max_files = 100
max_file_size = 1048576
file_timeout = "5s"
# include = ["**/*.py", "**/*.go"]

[thresholds]
cyclomatic_complexity = 10
max_function_lines = 50

[exclude]
dirs = ["node_modules", "vendor", "venv", ".venv", "__pycache__", "dist", "build", "target", ".git", "tmp"]
gitignore = true

[output]
format = "text"
color = true
progress = true
`

// WriteDefault writes a starter config file. Refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	return os.WriteFile(path, []byte(starter), 0o644)
}
