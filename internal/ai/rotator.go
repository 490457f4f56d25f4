package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/salespipe-cli/internal/logger"
	"github.com/KaramelBytes/salespipe-cli/internal/utils"
)

// Failure texts returned in place of a report. They are results, not errors.
const (
	ConfigureFailedText = "Error: Could not configure AI model. All API keys failed."
	RequestFailedText   = "Error: AI request failed (Quota or API issue). Please wait or check keys."
)

// DefaultRotationDelay is the pause before trying the next key.
const DefaultRotationDelay = 500 * time.Millisecond

// Status tags a Result.
type Status int

const (
	StatusSuccess Status = iota
	StatusExhausted
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "exhausted"
}

// Result is the outcome of a rotated generation. When Status is
// StatusExhausted, Text holds one of the failure texts and Err the last
// underlying error.
type Result struct {
	Text     string
	Status   Status
	Attempts int
	Err      error
}

// OK reports whether the result carries generated text.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// RotatorConfig configures a Rotator.
type RotatorConfig struct {
	Provider    string
	Model       string
	Keys        []string
	MaxTokens   int
	Temperature float64
	Delay       time.Duration
	Runtime     RuntimeConfig
}

// Rotator sends prompts through an ordered list of API keys. The key that
// last succeeded is tried first; each failure moves to the next key.
type Rotator struct {
	model       string
	keys        []string
	maxTokens   int
	temperature float64
	delay       time.Duration
	index       int
	// connect builds the runtime for a key; an error means the key could not be configured.
	connect func(key string) (Runtime, error)
}

// NewRotator builds a Rotator over the registry runtime for cfg.Provider.
func NewRotator(cfg RotatorConfig) (*Rotator, error) {
	if _, ok := registry[cfg.Provider]; !ok {
		return nil, fmt.Errorf("unknown AI provider %q (known: %v)", cfg.Provider, Providers())
	}
	if cfg.Model == "" {
		cfg.Model, _ = DefaultModel(cfg.Provider)
	}
	keys := cfg.Keys
	if !NeedsKey(cfg.Provider) && len(keys) == 0 {
		keys = []string{""}
	}
	connect := func(key string) (Runtime, error) {
		if NeedsKey(cfg.Provider) && key == "" {
			return nil, ErrMissingAPIKey
		}
		rc := cfg.Runtime
		rc.APIKey = key
		return GetRuntime(cfg.Provider, rc)
	}
	return newRotator(cfg, keys, connect), nil
}

func newRotator(cfg RotatorConfig, keys []string, connect func(string) (Runtime, error)) *Rotator {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Rotator{
		model:       cfg.Model,
		keys:        append([]string(nil), keys...),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		delay:       cfg.Delay,
		connect:     connect,
	}
}

// Model is the model prompts are sent to.
func (r *Rotator) Model() string { return r.model }

// Generate sends prompt, trying each key at most once. It never returns an
// error: exhaustion is reported through Result.
func (r *Rotator) Generate(ctx context.Context, prompt string) Result {
	log := logger.With("model", r.model)
	if len(r.keys) == 0 {
		log.Warnw("no API keys configured")
		return Result{Text: ConfigureFailedText, Status: StatusExhausted, Err: ErrMissingAPIKey}
	}
	prompt = r.fit(prompt)
	var (
		res        = Result{Status: StatusExhausted}
		configured bool
	)
	for i := 0; i < len(r.keys); i++ {
		if i > 0 {
			if err := sleep(ctx, r.delay); err != nil {
				res.Err = err
				break
			}
		}
		idx := (r.index + i) % len(r.keys)
		res.Attempts++
		rt, err := r.connect(r.keys[idx])
		if err != nil {
			log.Warnw("AI key could not be configured, rotating", "key_index", idx, "error", err)
			res.Err = err
			continue
		}
		configured = true
		req := UserPrompt(r.model, prompt)
		req.MaxTokens = r.maxTokens
		req.Temperature = r.temperature
		resp, err := rt.Generate(ctx, req)
		if err != nil {
			log.Warnw("AI request failed, rotating", "key_index", idx, "error", err)
			res.Err = err
			continue
		}
		r.index = idx
		log.Debugw("AI request succeeded", "key_index", idx, "attempts", res.Attempts, "request_id", resp.RequestID)
		return Result{Text: resp.Text(), Status: StatusSuccess, Attempts: res.Attempts}
	}
	if configured {
		res.Text = RequestFailedText
	} else {
		res.Text = ConfigureFailedText
	}
	return res
}

// fit truncates prompt to the model context, leaving room for the reply.
func (r *Rotator) fit(prompt string) string {
	budget := ContextTokens(r.model) - r.maxTokens
	if budget <= 0 {
		budget = ContextTokens(r.model) / 2
	}
	if utils.CountTokens(prompt) <= budget {
		return prompt
	}
	logger.L.Debugw("prompt truncated to model context", "model", r.model, "budget", budget)
	return utils.TruncateToTokenLimit(prompt, budget)
}
