package ai

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Gemini generateContent REST API.
type GeminiClient struct {
	t       transport
	apiKey  string
	baseURL string
}

// NewGeminiClient returns a client; an empty baseURL uses the public endpoint.
func NewGeminiClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiClient{
		t:       newTransport(httpTimeout, retryMax, baseDelay, maxDelay),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ResponseID string `json:"responseId"`
}

func toGemini(req GenerateRequest) geminiRequest {
	var g geminiRequest
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			g.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case "assistant":
			g.Contents = append(g.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			g.Contents = append(g.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		g.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens, Temperature: req.Temperature}
	}
	return g
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	endpoint := c.baseURL + "/models/" + url.PathEscape(req.Model) + ":generateContent?key=" + url.QueryEscape(c.apiKey)

	var gr geminiResponse
	reqID, err := c.t.postJSON(ctx, endpoint, nil, toGemini(req), &gr)
	if err != nil {
		return nil, err
	}
	if len(gr.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}
	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return &GenerateResponse{
		ID:      gr.ResponseID,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		Usage: Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		},
		RequestID: reqID,
	}, nil
}
