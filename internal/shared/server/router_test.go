package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildmycv-backend/internal/flows"
	"buildmycv-backend/internal/history"
	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/config"
	"buildmycv-backend/internal/shared/metrics"
	"buildmycv-backend/internal/shared/server/middleware"
)

func testRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:9002"},
		RateLimitRPS:    rps,
		RateLimitBurst:  burst,
	}
	svc := flows.NewService(llm.PlaceholderModel{}, nil, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewRouter(RouterDeps{
		Config:      cfg,
		FlowHandler: flows.NewHandler(svc, history.NewService(history.NewMemoryRepo(0)), 0),
		Metrics:     metrics.NewRegistry(),
		RateLimiter: middleware.NewRateLimiter(func() time.Time { return fixed }),
	})
}

func TestHealth(t *testing.T) {
	r := testRouter(1, 1)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestFlowPostsAreRateLimited(t *testing.T) {
	r := testRouter(0.5, 1)
	body := `{"resumeDataUri":"data:application/pdf;base64,JVBERi0xLjQK"}`

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resume/analyze", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Guest-Id", "rl-guest")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post()
	// the placeholder model fails upstream, which still spends the token
	assert.Equal(t, http.StatusBadGateway, first.Code)

	second := post()
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))

	// reads are not limited
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
		req.Header.Set("X-Guest-Id", "rl-guest")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRotatingGuestIDsShareAddressBudget(t *testing.T) {
	r := testRouter(0.5, 5)
	body := `{"resumeDataUri":"data:application/pdf;base64,JVBERi0xLjQK"}`

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/resume/analyze", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Guest-Id", fmt.Sprintf("guest-%d", i))
		// untrusted hop; must not change the client address
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if i < 5 {
			assert.Equal(t, http.StatusBadGateway, w.Code, "request %d", i+1)
			continue
		}
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 15, limited)
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(1, 1)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/v1/health"`)
}

func TestUnknownOriginPreflightRejected(t *testing.T) {
	r := testRouter(1, 1)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/resume/analyze", nil)
	req.Header.Set("Origin", "http://evil.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	metricsResp := httptest.NewRecorder()
	r.ServeHTTP(metricsResp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsResp.Body.String(), `http_requests_total{method="OPTIONS",path="unmatched",status_code="204"} 1`)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
