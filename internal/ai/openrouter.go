package ai

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// ErrMissingAPIKey is returned by clients constructed without a key.
var ErrMissingAPIKey = errors.New("api key is missing")

// OpenRouterClient calls the OpenRouter chat completions API.
type OpenRouterClient struct {
	t       transport
	apiKey  string
	baseURL string
}

// NewOpenRouterClient returns a client; an empty baseURL uses the public endpoint.
func NewOpenRouterClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *OpenRouterClient {
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	return &OpenRouterClient{
		t:       newTransport(httpTimeout, retryMax, baseDelay, maxDelay),
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.apiKey)
	h.Set("HTTP-Referer", "https://github.com/KaramelBytes/salespipe-cli")
	h.Set("X-Title", "salespipe")

	var out GenerateResponse
	reqID, err := c.t.postJSON(ctx, c.baseURL+"/chat/completions", h, req, &out)
	if err != nil {
		return nil, err
	}
	out.RequestID = reqID
	return &out, nil
}
