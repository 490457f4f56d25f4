package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

// transport posts JSON with retries on 429, 5xx and transient network errors.
type transport struct {
	client    *http.Client
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	// unreachable wraps a final network failure; nil keeps the plain error.
	unreachable func(error) error
}

func newTransport(timeout time.Duration, attempts int, baseDelay, maxDelay time.Duration) transport {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if attempts <= 0 {
		attempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return transport{
		client:    &http.Client{Timeout: timeout},
		attempts:  attempts,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// postJSON sends payload to url and decodes a 2xx body into out. It returns
// the provider request id when one is present.
func (t transport) postJSON(ctx context.Context, url string, header http.Header, payload any, out any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	backoff := t.baseDelay
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		for k, vals := range header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			if isRetryableNetErr(err) && attempt < t.attempts {
				lastErr = err
				if err := sleep(ctx, withJitter(backoff)); err != nil {
					return "", err
				}
				backoff *= 2
				continue
			}
			if t.unreachable != nil {
				return "", t.unreachable(err)
			}
			return "", fmt.Errorf("http request: %w", err)
		}
		reqID, wait, retry, err := readResponse(resp, out)
		if err == nil {
			return reqID, nil
		}
		lastErr = err
		if !retry || attempt == t.attempts {
			break
		}
		if wait <= 0 {
			wait = withJitter(backoff)
			if wait > t.maxDelay {
				wait = t.maxDelay
			}
			backoff *= 2
		}
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// readResponse decodes resp. On failure it reports whether the status is
// retryable and how long the provider asked to wait.
func readResponse(resp *http.Response, out any) (reqID string, wait time.Duration, retry bool, err error) {
	defer resp.Body.Close()
	reqID = extractRequestID(resp)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return reqID, 0, false, fmt.Errorf("decode response: %w", err)
		}
		return reqID, 0, false, nil
	}
	apiErr := apiErrorFromBody(resp)
	apiErr.RequestID = reqID
	retry = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	return reqID, wait, retry, classifyAPIError(apiErr, resp)
}

// apiErrorFromBody understands {"error":{"message","code"|"status"}},
// {"error":"..."} and {"message":"..."} bodies.
func apiErrorFromBody(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	e := &APIError{StatusCode: resp.StatusCode, Raw: raw}
	switch v := raw["error"].(type) {
	case map[string]any:
		e.Message, _ = v["message"].(string)
		if code, ok := v["code"].(string); ok {
			e.Code = code
		} else if status, ok := v["status"].(string); ok {
			e.Code = status
		}
	case string:
		e.Message = v
	}
	if e.Message == "" {
		e.Message, _ = raw["message"].(string)
	}
	return e
}

// classifyAPIError maps an APIError to the typed errors callers match on.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc, msg, code := apiErr.StatusCode, apiErr.Message, apiErr.Code
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		if code == "RESOURCE_EXHAUSTED" && containsAnyFold(msg, "quota") {
			return &QuotaExceededError{APIError: apiErr}
		}
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound:
		if code == "model_not_found" || code == "NOT_FOUND" || containsAllFold(msg, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case sc == http.StatusBadRequest:
		if containsAnyFold(msg, "api key not valid", "api_key_invalid") {
			return &AuthError{APIError: apiErr}
		}
		return &BadRequestError{APIError: apiErr}
	case code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

// parseRetryAfterSeconds accepts delay-seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Goog-Request-Id", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter applies +/- 20% jitter.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if out <= 0 {
		return d
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
