package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ModelInfo is catalog metadata used to size prompts.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int
}

// fallbackContextTokens applies to models missing from the catalog.
const fallbackContextTokens = 8192

var models = map[string]ModelInfo{
	"gemini-2.0-flash":            {"gemini-2.0-flash", ProviderGemini, 1048576},
	"gemini-1.5-flash":            {"gemini-1.5-flash", ProviderGemini, 1048576},
	"gemini-1.5-pro":              {"gemini-1.5-pro", ProviderGemini, 2097152},
	"google/gemini-flash-1.5":     {"google/gemini-flash-1.5", ProviderOpenRouter, 1000000},
	"openai/gpt-4o-mini":          {"openai/gpt-4o-mini", ProviderOpenRouter, 128000},
	"anthropic/claude-3.5-sonnet": {"anthropic/claude-3.5-sonnet", ProviderOpenRouter, 200000},
	"deepseek/deepseek-r1:free":   {"deepseek/deepseek-r1:free", ProviderOpenRouter, 128000},
	"llama3.1:8b-instruct":        {"llama3.1:8b-instruct", ProviderOllama, 8192},
	"llama3:latest":               {"llama3:latest", ProviderOllama, 8192},
	"mistral:7b-instruct":         {"mistral:7b-instruct", ProviderOllama, 8192},
}

var defaultModels = map[string]string{
	ProviderGemini:     "gemini-2.0-flash",
	ProviderOpenRouter: "google/gemini-flash-1.5",
	ProviderOllama:     "llama3.1:8b-instruct",
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) (string, bool) {
	m, ok := defaultModels[provider]
	return m, ok
}

// LookupModel returns catalog metadata for name.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ContextTokens is the model's context window, or a conservative fallback.
func ContextTokens(name string) int {
	if mi, ok := models[name]; ok && mi.ContextTokens > 0 {
		return mi.ContextTokens
	}
	return fallbackContextTokens
}

// ProviderModels lists catalog models for a provider, sorted by name.
func ProviderModels(provider string) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MergeCatalogFile merges a JSON object of name -> ModelInfo into the catalog.
func MergeCatalogFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m map[string]ModelInfo
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("parse model catalog %s: %w", path, err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
	return nil
}
