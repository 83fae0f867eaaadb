package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eternisai/meta-optimizer/internal/config"
	"github.com/eternisai/meta-optimizer/internal/logger"
	"github.com/eternisai/meta-optimizer/internal/metrics"
)

const titles = `Best Running Shoes 2025 | Top Picks for Every Runner
10 Running Shoes Reviewed by Experts - RunnersWorld
Running Shoes for Men & Women | Free Shipping
Shop Lightweight Running Shoes Online | Nike
The Ultimate Guide to Choosing Running Shoes`

func newTestServer(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	completionSrv := httptest.NewServer(upstream)
	t.Cleanup(completionSrv.Close)

	cfg := &config.Config{
		OpenAIAPIKey:       "sk-test",
		CORSAllowedOrigins: "https://example.com",
		Generation: config.GenerationConfig{
			BaseURL: completionSrv.URL,
			RateLimit: config.RateLimitRetryConfig{
				RetryDelay: time.Millisecond,
			},
		},
	}
	if err := cfg.Generation.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	router, err := newRouter(cfg, logger.Discard(), metrics.New())
	if err != nil {
		t.Fatalf("newRouter() error: %v", err)
	}

	srv := httptest.NewServer(corsHandler(cfg.CORSAllowedOrigins).Handler(router))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateEndToEnd(t *testing.T) {
	var calls atomic.Int32
	var prompt atomic.Value
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
			MaxTokens int `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}
		if req.MaxTokens != 120 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}
		if len(req.Messages) == 1 {
			prompt.Store(req.Messages[0].Content)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":" Running Shoes 2025: Tested Picks "}}]}`)
	})

	body, _ := json.Marshal(map[string]string{"category": "title", "examples": titles})
	resp, err := http.Post(srv.URL+"/api/v1/generate", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(logger.RequestIDHeader) == "" {
		t.Errorf("missing request id header")
	}

	var result struct {
		Output  string `json:"output"`
		Notices []struct {
			Level string `json:"level"`
		} `json:"notices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if result.Output != "Running Shoes 2025: Tested Picks" {
		t.Errorf("output = %q", result.Output)
	}
	if calls.Load() != 3 {
		t.Errorf("upstream calls = %d, want 3", calls.Load())
	}
	levels := make([]string, 0, len(result.Notices))
	for _, n := range result.Notices {
		levels = append(levels, n.Level)
	}
	if strings.Join(levels, ",") != "warning,warning,success" {
		t.Errorf("notice levels = %v", levels)
	}
	sent, _ := prompt.Load().(string)
	if !strings.Contains(sent, "under 60 characters") {
		t.Errorf("prompt missing limit: %q", sent)
	}
	for _, line := range strings.Split(titles, "\n") {
		if !strings.Contains(sent, line) {
			t.Errorf("prompt missing %q", line)
		}
	}
}

func TestRouterExtras(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("completion service should not be called")
	})

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(metricsBody), "meta_optimizer_http_request_duration_seconds") {
		t.Errorf("metrics missing request histogram")
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/generate", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
