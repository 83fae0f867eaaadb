package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGeneration(t *testing.T) {
	m := New()

	m.ObserveGeneration("title", OutcomeSuccess)
	m.ObserveGeneration("title", OutcomeSuccess)
	m.ObserveGeneration("description", OutcomeRateLimited)

	if got := testutil.ToFloat64(m.generations.WithLabelValues("title", OutcomeSuccess)); got != 2 {
		t.Errorf("title/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.generations.WithLabelValues("description", OutcomeRateLimited)); got != 1 {
		t.Errorf("description/rate_limited = %v, want 1", got)
	}
}

func TestObserveAttempt(t *testing.T) {
	m := New()

	m.ObserveAttempt(true)
	m.ObserveAttempt(true)
	m.ObserveAttempt(false)

	if got := testutil.ToFloat64(m.attempts); got != 3 {
		t.Errorf("attempts = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.rateLimitHits); got != 2 {
		t.Errorf("rate limited = %v, want 2", got)
	}
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	m.ObserveAttempt(false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{
		"meta_optimizer_completion_attempts_total 1",
		`meta_optimizer_http_request_duration_seconds_count{method="GET",route="/ping",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
