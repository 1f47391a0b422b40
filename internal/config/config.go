package config

import (
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for jsonshape
type Config struct {
	Package    string           `yaml:"package"`
	RootName   string           `yaml:"root_name"`
	Formatting FormattingConfig `yaml:"formatting"`
	Naming     NamingConfig     `yaml:"naming"`
	Shims      ShimsConfig      `yaml:"shims"`
	Decode     DecodeConfig     `yaml:"decode"`
	Infer      InferConfig      `yaml:"infer"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	Dev        DevConfig        `yaml:"dev"`
}

// FormattingConfig controls code formatting options
type FormattingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NamingConfig controls how JSON keys become Go identifiers
type NamingConfig struct {
	FieldMappings map[string]string `yaml:"field_mappings"`
	Initialisms   []string          `yaml:"initialisms"`
}

// ShimsConfig controls the per-type functions emitted next to each struct. Schema files
// may override the prefixes.
type ShimsConfig struct {
	Enabled           bool   `yaml:"enabled"`
	SerializePrefix   string `yaml:"serialize_prefix"`
	DeserializePrefix string `yaml:"deserialize_prefix"`
}

// DecodeConfig holds the default deserialization options baked into generated code and
// used by the check and fmt commands.
type DecodeConfig struct {
	RequireAllFields bool `yaml:"require_all_fields"`
	DisallowTrailing bool `yaml:"disallow_trailing"`
}

// InferConfig controls schema inference from sample documents
type InferConfig struct {
	IntegerType      string        `yaml:"integer_type"`
	FloatType        string        `yaml:"float_type"`
	SingularizeNames bool          `yaml:"singularize_names"`
	Mappings         []TypeMapping `yaml:"mappings"`
}

// TypeMapping forces the inferred type of fields whose JSON key matches Pattern
type TypeMapping struct {
	Pattern string `yaml:"pattern"`
	Type    string `yaml:"type"`

	// compiled regex (not serialized)
	regex *regexp.Regexp
}

// OutputConfig controls output generation options
type OutputConfig struct {
	FileHeader string `yaml:"file_header"`
	Suffix     string `yaml:"suffix"`
}

// LogConfig controls CLI logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// Defaults
const (
	DefaultPackage           = "main"
	DefaultRootName          = "Root"
	DefaultSerializePrefix   = "Serialize"
	DefaultDeserializePrefix = "Deserialize"
	DefaultSuffix            = "_gen.go"
)

var configNames = []string{".jsonshape.yml", ".jsonshape.yaml", "jsonshape.yml", "jsonshape.yaml"}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Package:  DefaultPackage,
		RootName: DefaultRootName,
		Formatting: FormattingConfig{
			Enabled: true,
		},
		Naming: NamingConfig{
			FieldMappings: make(map[string]string),
			Initialisms:   []string{"ID", "URL", "JSON", "HTTP", "API", "UUID"},
		},
		Shims: ShimsConfig{
			Enabled:           true,
			SerializePrefix:   DefaultSerializePrefix,
			DeserializePrefix: DefaultDeserializePrefix,
		},
		Infer: InferConfig{
			IntegerType:      "int64",
			FloatType:        "float64",
			SingularizeNames: true,
			Mappings:         []TypeMapping{},
		},
		Output: OutputConfig{
			Suffix: DefaultSuffix,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.compilePatterns(); err != nil {
		return nil, errors.Wrap(err, "failed to compile patterns")
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in dir and its parents
func FindConfigFile(dir string) string {
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return ""
		}
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate checks values that would otherwise fail later with a confusing message
func (c *Config) Validate() error {
	if c.Package != "" && !IsIdentifier(c.Package) {
		return errors.Newf("package %q is not a valid Go identifier", c.Package)
	}
	for _, prefix := range []string{c.Shims.SerializePrefix, c.Shims.DeserializePrefix} {
		if prefix != "" && !IsIdentifier(prefix) {
			return errors.Newf("shim prefix %q is not a valid Go identifier", prefix)
		}
	}
	switch c.Infer.IntegerType {
	case "", "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
	default:
		return errors.Newf("infer.integer_type %q is not an integer type", c.Infer.IntegerType)
	}
	switch c.Infer.FloatType {
	case "", "float32", "float64":
	default:
		return errors.Newf("infer.float_type %q is not a float type", c.Infer.FloatType)
	}
	return nil
}

// compilePatterns compiles all regex patterns in the config
func (c *Config) compilePatterns() error {
	for i := range c.Infer.Mappings {
		mapping := &c.Infer.Mappings[i]
		regex, err := regexp.Compile(mapping.Pattern)
		if err != nil {
			return errors.Wrapf(err, "invalid type mapping pattern '%s'", mapping.Pattern)
		}
		mapping.regex = regex
	}
	return nil
}

// MatchesField checks if this type mapping matches the given JSON key
func (tm *TypeMapping) MatchesField(fieldName string) bool {
	if tm.regex == nil {
		regex, err := regexp.Compile(tm.Pattern)
		if err != nil {
			return false
		}
		tm.regex = regex
	}
	return tm.regex.MatchString(fieldName)
}

// FindTypeMapping finds the first type mapping that matches the JSON key
func (c *Config) FindTypeMapping(fieldName string) (TypeMapping, bool) {
	for _, mapping := range c.Infer.Mappings {
		if mapping.MatchesField(fieldName) {
			return mapping, true
		}
	}
	return TypeMapping{}, false
}

// GetFieldName returns the Go field name for a JSON key, applying naming rules
func (c *Config) GetFieldName(jsonKey string) string {
	if mapped, exists := c.Naming.FieldMappings[jsonKey]; exists {
		return mapped
	}
	return GoName(jsonKey, c.Naming.Initialisms)
}

// GoName converts a JSON key to an exported Go identifier. Words matching an initialism
// (compared case-insensitively) are upper-cased, so "user_id" becomes "UserID".
func GoName(key string, initialisms []string) string {
	name := strcase.ToCamel(key)
	if name == "" {
		return "Field"
	}

	if len(initialisms) > 0 {
		words := splitWords(name)
		for i, w := range words {
			for _, in := range initialisms {
				if strings.EqualFold(w, in) {
					words[i] = strings.ToUpper(in)
					break
				}
			}
		}
		name = strings.Join(words, "")
	}

	if r := []rune(name)[0]; !unicode.IsLetter(r) {
		name = "F" + name
	}
	return name
}

// splitWords splits a CamelCase identifier before each upper-case letter.
func splitWords(s string) []string {
	var words []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

// IsIdentifier reports whether s is a valid Go identifier. Keywords are not.
func IsIdentifier(s string) bool {
	if s == "" || token.IsKeyword(s) {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// Overrides carries CLI flags. Empty strings and nil pointers leave the config value alone.
type Overrides struct {
	Package  string
	RootName string
	Format   *bool
	Debug    bool
	LogFile  string
}

// LoadConfigWithCLI loads config with CLI argument precedence. When configPath is empty a
// config file is searched for from the working directory upwards.
func LoadConfigWithCLI(configPath string, o Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath == "" {
		configPath = FindConfigFile("")
	}
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if o.Package != "" {
		cfg.Package = o.Package
	}
	if o.RootName != "" {
		cfg.RootName = o.RootName
	}
	if o.Format != nil {
		cfg.Formatting.Enabled = *o.Format
	}
	if o.Debug {
		cfg.Dev.Debug = true
		cfg.Log.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}

	return cfg, cfg.Validate()
}
