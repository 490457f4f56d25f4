package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient calls a local Ollama runtime's /api/chat endpoint.
type OllamaClient struct {
	t    transport
	host string
}

// NewOllamaClient targets host, e.g. http://127.0.0.1:11434.
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = defaultOllamaHost
	}
	if retryMax <= 0 {
		retryMax = 2
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = time.Second
	}
	t := newTransport(httpTimeout, retryMax, baseDelay, maxDelay)
	t.unreachable = func(err error) error { return &UnreachableError{Host: host, Err: err} }
	return &OllamaClient{t: t, host: host}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Options: map[string]any{}}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}

	var oresp ollamaChatResponse
	if _, err := c.t.postJSON(ctx, c.host+"/api/chat", nil, oreq, &oresp); err != nil {
		return nil, err
	}
	return &GenerateResponse{
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}},
		RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
	}, nil
}
