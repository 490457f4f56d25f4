package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. SALESPIPE_AI_KEYS.
const EnvPrefix = "SALESPIPE"

// Global configuration structure.
type Global struct {
	AIProvider  string   `mapstructure:"ai_provider" yaml:"ai_provider"`
	AIModel     string   `mapstructure:"ai_model" yaml:"ai_model"`
	AIKeys      []string `mapstructure:"ai_keys" yaml:"ai_keys"`
	MaxTokens   int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64  `mapstructure:"temperature" yaml:"temperature"`
	// ModelCatalog is an optional JSON file merged into the built-in model catalog.
	ModelCatalog string `mapstructure:"model_catalog" yaml:"model_catalog,omitempty"`

	// Pipeline
	MissingThreshold float64 `mapstructure:"missing_threshold" yaml:"missing_threshold"`
	SampleRows       int     `mapstructure:"sample_rows" yaml:"sample_rows"`
	PageRows         int     `mapstructure:"page_rows" yaml:"page_rows"`
	TopStates        int     `mapstructure:"top_states" yaml:"top_states"`
	TopCities        int     `mapstructure:"top_cities" yaml:"top_cities"`
	OutputDir        string  `mapstructure:"output_dir" yaml:"output_dir"`

	// HTTP/Retry configuration
	HTTPTimeoutSec     int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts   int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs   int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs    int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
	KeyRotationDelayMs int `mapstructure:"key_rotation_delay_ms" yaml:"key_rotation_delay_ms"`

	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

var defaults = map[string]any{
	"ai_provider":           "gemini",
	"ai_model":              "",
	"ai_keys":               []string{},
	"max_tokens":            2048,
	"temperature":           0.7,
	"model_catalog":         "",
	"missing_threshold":     10.0,
	"sample_rows":           100,
	"page_rows":             50,
	"top_states":            10,
	"top_cities":            10,
	"output_dir":            ".",
	"http_timeout_sec":      60,
	"retry_max_attempts":    3,
	"retry_base_delay_ms":   500,
	"retry_max_delay_ms":    4000,
	"key_rotation_delay_ms": 500,
	"ollama_host":           "http://127.0.0.1:11434",
	"log_format":            "human",
	"log_file":              "",
}

// Keys lists the settable configuration keys.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultPath is ~/.salespipe/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".salespipe", "config.yaml"), nil
}

// Load loads configuration from defaults, the config file and the environment.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.AIKeys = splitKeys(c.AIKeys)
	return &c, c.Validate()
}

// splitKeys flattens comma-separated entries and drops blanks.
func splitKeys(in []string) []string {
	var out []string
	for _, k := range in {
		for _, part := range strings.Split(k, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate rejects values the pipeline cannot run with.
func (c *Global) Validate() error {
	if c.MissingThreshold < 0 || c.MissingThreshold > 100 {
		return fmt.Errorf("missing_threshold must be within [0, 100], got %v", c.MissingThreshold)
	}
	if c.TopStates < 5 || c.TopStates > 20 || c.TopCities < 5 || c.TopCities > 20 {
		return fmt.Errorf("top_states and top_cities must be within [5, 20]")
	}
	if c.SampleRows <= 0 || c.PageRows <= 0 {
		return fmt.Errorf("sample_rows and page_rows must be positive")
	}
	switch c.LogFormat {
	case "human", "json":
	default:
		return fmt.Errorf("log_format must be human or json, got %q", c.LogFormat)
	}
	return nil
}

// HTTPTimeout and the other duration helpers convert the integer settings.
func (c *Global) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }
func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}
func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}
func (c *Global) KeyRotationDelay() time.Duration {
	return time.Duration(c.KeyRotationDelayMs) * time.Millisecond
}

// Set assigns key from its string form.
func (c *Global) Set(key, value string) error {
	var err error
	atoi := func(dst *int) { *dst, err = strconv.Atoi(value) }
	switch key {
	case "ai_provider":
		c.AIProvider = value
	case "ai_model":
		c.AIModel = value
	case "ai_keys":
		c.AIKeys = splitKeys([]string{value})
	case "max_tokens":
		atoi(&c.MaxTokens)
	case "temperature":
		c.Temperature, err = strconv.ParseFloat(value, 64)
	case "model_catalog":
		c.ModelCatalog = value
	case "missing_threshold":
		c.MissingThreshold, err = strconv.ParseFloat(value, 64)
	case "sample_rows":
		atoi(&c.SampleRows)
	case "page_rows":
		atoi(&c.PageRows)
	case "top_states":
		atoi(&c.TopStates)
	case "top_cities":
		atoi(&c.TopCities)
	case "output_dir":
		c.OutputDir = value
	case "http_timeout_sec":
		atoi(&c.HTTPTimeoutSec)
	case "retry_max_attempts":
		atoi(&c.RetryMaxAttempts)
	case "retry_base_delay_ms":
		atoi(&c.RetryBaseDelayMs)
	case "retry_max_delay_ms":
		atoi(&c.RetryMaxDelayMs)
	case "key_rotation_delay_ms":
		atoi(&c.KeyRotationDelayMs)
	case "ollama_host":
		c.OllamaHost = value
	case "log_format":
		c.LogFormat = value
	case "log_file":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return c.Validate()
}

// Masked returns a copy safe to print: API keys keep only their last four characters.
func (c *Global) Masked() Global {
	out := *c
	out.AIKeys = make([]string, len(c.AIKeys))
	for i, k := range c.AIKeys {
		out.AIKeys[i] = mask(k)
	}
	return out
}

func mask(k string) string {
	if len(k) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

// YAML renders the configuration.
func (c *Global) YAML() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}

// Save writes the configuration to cfgFile, or the default path when empty.
func Save(c *Global, cfgFile string) error {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		cfgFile = p
	}
	if err := os.MkdirAll(filepath.Dir(cfgFile), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgFile, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
