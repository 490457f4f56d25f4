package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// statusSequence answers POSTs to path with statuses in order, repeating the last.
func statusSequence(t *testing.T, path string, statuses []int, headers []http.Header, ok any) (*ipv4Server, *int32) {
	t.Helper()
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(statuses[i])
		if statuses[i] < 300 {
			_ = json.NewEncoder(w).Encode(ok)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
	return srv, &calls
}

func TestOpenRouterRetriesOn429(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv, calls := statusSequence(t, "/chat/completions", []int{429, 200}, []http.Header{{"Retry-After": {"0"}}}, okBody)

	c := NewOpenRouterClient("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, UserPrompt("test-model", "hi"))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "ok" || atomic.LoadInt32(calls) != 2 {
		t.Fatalf("text=%q calls=%d", resp.Text(), atomic.LoadInt32(calls))
	}
}

func TestRetryAfterHonored(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Content: "ok"}}}}
	srv, _ := statusSequence(t, "/chat/completions", []int{429, 200}, []http.Header{{"Retry-After": {"1"}}}, okBody)

	c := NewOpenRouterClient("test", 5*time.Second, 3, 0, 0, srv.URL)
	start := time.Now()
	if _, err := c.Generate(context.Background(), UserPrompt("test-model", "hi")); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestNonRetryableErrorIsClassified(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))

	c := NewOpenRouterClient("test", 2*time.Second, 3, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), UserPrompt("test-model", "hi"))
	var bad *BadRequestError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadRequestError, got %v", err)
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("400 should not be retried, got %d calls", n)
	}
}

func TestOpenRouterRequiresKey(t *testing.T) {
	c := NewOpenRouterClient("", time.Second, 1, 0, 0, "http://127.0.0.1:1")
	if _, err := c.Generate(context.Background(), UserPrompt("m", "hi")); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGeminiGenerate(t *testing.T) {
	var got geminiRequest
	var key, path string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, path = r.URL.Query().Get("key"), r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{
					map[string]any{"text": "Finding 1. "},
					map[string]any{"text": "Finding 2."},
				}},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16},
		})
	}))

	c := NewGeminiClient("k-123", 2*time.Second, 1, 0, 0, srv.URL)
	req := GenerateRequest{
		Model:     "gemini-2.0-flash",
		MaxTokens: 64,
		Messages:  []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "analyze"}},
	}
	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "Finding 1. Finding 2." || resp.Usage.TotalTokens != 16 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if key != "k-123" || path != "/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("key=%q path=%q", key, path)
	}
	if got.SystemInstruction == nil || len(got.Contents) != 1 || got.Contents[0].Parts[0].Text != "analyze" {
		t.Fatalf("request not mapped: %+v", got)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 64 {
		t.Fatalf("generation config not mapped: %+v", got.GenerationConfig)
	}
}

func TestGeminiQuotaIsClassified(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "You exceeded your current quota",
		}})
	}))
	c := NewGeminiClient("k", 2*time.Second, 1, 0, 0, srv.URL)
	_, err := c.Generate(context.Background(), UserPrompt("gemini-2.0-flash", "hi"))
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if Hint(err) == "" {
		t.Fatalf("expected a hint for quota errors")
	}
}

func TestOllamaGenerate(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "hello from ollama"},
			"done":    true,
		})
	}))

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	req := UserPrompt("llama3:latest", "hi")
	req.MaxTokens = 16
	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if captured.Stream || captured.Options["num_predict"] != float64(16) {
		t.Fatalf("unexpected request: %+v", captured)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open local listener: %v", err)
	}
	host := "http://" + ln.Addr().String()
	ln.Close()

	c := NewOllamaClient(host, time.Second, 1, 0, 0)
	_, err = c.Generate(context.Background(), UserPrompt("llama3:latest", "hi"))
	var down *UnreachableError
	if !errors.As(err, &down) || down.Host != host {
		t.Fatalf("expected UnreachableError for %s, got %v", host, err)
	}
}

func TestRegistry(t *testing.T) {
	for _, p := range []string{ProviderGemini, ProviderOpenRouter, ProviderOllama} {
		if _, err := GetRuntime(p, RuntimeConfig{}); err != nil {
			t.Fatalf("GetRuntime(%s): %v", p, err)
		}
		if _, ok := DefaultModel(p); !ok {
			t.Fatalf("no default model for %s", p)
		}
	}
	if _, err := GetRuntime("bard", RuntimeConfig{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if ContextTokens("no-such-model") != fallbackContextTokens {
		t.Fatalf("unknown models should use the fallback context")
	}
}
