package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"buildmycv-backend/internal/shared/telemetry"
)

func TestRateLimitGroupsAreIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.Configure(io.Discard, "info")
	t.Cleanup(func() { telemetry.Configure(os.Stdout, "info") })

	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.Request.Method == http.MethodGet {
			return "READ"
		}
		return "FLOW"
	}

	r := gin.New()
	r.Use(Identity())
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "FLOW",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"FLOW": {Rate: 1, Burst: 2},
			"READ": {Rate: 5, Burst: 10},
		},
	}))

	r.GET("/api/v1/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/v1/jobs/match", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-Guest-Id", "test-guest")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 3; i++ {
		if code := send(http.MethodGet, "/api/v1/dashboard"); code != http.StatusOK {
			t.Fatalf("read request %d expected 200, got %d", i+1, code)
		}
	}
	for i := 0; i < 2; i++ {
		if code := send(http.MethodPost, "/api/v1/jobs/match"); code != http.StatusOK {
			t.Fatalf("flow request %d expected 200, got %d", i+1, code)
		}
	}
	if code := send(http.MethodPost, "/api/v1/jobs/match"); code != http.StatusTooManyRequests {
		t.Fatalf("flow request 3 expected 429, got %d", code)
	}

	now = now.Add(time.Second)
	if code := send(http.MethodPost, "/api/v1/jobs/match"); code != http.StatusOK {
		t.Fatalf("expected refill after one second, got %d", code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.Configure(io.Discard, "info")
	t.Cleanup(func() { telemetry.Configure(os.Stdout, "info") })

	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(Identity())
	r.Use(RateLimit(RateLimitConfig{
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 0.5, Burst: 1},
		},
	}))
	r.GET("/api/v1/limited", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if got := resp2.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected code rate_limited, got %q", payload.Error.Code)
	}
	if _, ok := payload.Error.Details["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in details")
	}
}

func TestRateLimitZeroRuleDisables(t *testing.T) {
	l := NewRateLimiter(nil)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("k", RateLimitRule{}); !ok {
			t.Fatalf("expected disabled rule to allow")
		}
	}
}

func TestRateLimitIgnoresRotatingGuestIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.Configure(io.Discard, "info")
	t.Cleanup(func() { telemetry.Configure(os.Stdout, "info") })

	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := gin.New()
	r.Use(Identity())
	r.Use(RateLimit(RateLimitConfig{
		Limiter: NewRateLimiter(func() time.Time { return now }),
		Rules:   map[string]RateLimitRule{"DEFAULT": {Rate: 0.5, Burst: 2}},
	}))
	r.POST("/api/v1/jobs/match", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	send := func(guestID, remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/match", nil)
		req.RemoteAddr = remoteAddr
		req.Header.Set("X-Guest-Id", guestID)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("guest-"+strconv.Itoa(i), "203.0.113.7:4000"); code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, code)
		}
	}
	if code := send("guest-fresh", "203.0.113.7:4001"); code != http.StatusTooManyRequests {
		t.Fatalf("new guest id from same address expected 429, got %d", code)
	}
	if code := send("guest-fresh", "198.51.100.9:4000"); code != http.StatusOK {
		t.Fatalf("other address expected 200, got %d", code)
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 0.5, Burst: 5}

	for _, key := range []string{"ip:a|FLOW", "ip:b|FLOW", "ip:c|FLOW"} {
		l.Allow(key, rule)
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("expected 3 buckets, got %d", got)
	}

	// a full refill takes burst/rate = 10s
	now = now.Add(30 * time.Second)
	l.Allow("ip:a|FLOW", rule)
	now = now.Add(2 * time.Minute)
	l.Allow("ip:d|FLOW", rule)
	if got := l.Len(); got != 1 {
		t.Fatalf("expected idle buckets to be dropped, got %d", got)
	}
}
