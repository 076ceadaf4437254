package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-for-unit-tests",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

type fakeRevoked struct {
	ids map[string]bool
	err error
}

func (f *fakeRevoked) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.ids[jti], f.err
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestManager()
	access, _ := mgr.GenerateAccessToken("user-1", "alice")
	refresh, _ := mgr.GenerateRefreshToken("user-1", "alice")
	claims, _ := mgr.ParseToken(access)

	tests := []struct {
		name    string
		header  string
		revoked RevocationChecker
		want    int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Token " + access, nil, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", nil, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, nil, http.StatusUnauthorized},
		{"valid", "Bearer " + access, nil, http.StatusOK},
		{"lower-case scheme", "bearer " + access, nil, http.StatusOK},
		{"revoked", "Bearer " + access, &fakeRevoked{ids: map[string]bool{claims.ID: true}}, http.StatusUnauthorized},
		{"blacklist down", "Bearer " + access, &fakeRevoked{err: errors.New("redis down")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			r := gin.New()
			r.GET("/me", JWTAuth(mgr, tt.revoked), func(c *gin.Context) {
				gotUser = c.GetString("user_id")
				if _, ok := c.Get("claims"); !ok {
					t.Error("expected claims in context")
				}
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusOK && gotUser != "user-1" {
				t.Errorf("expected user-1 in context, got %q", gotUser)
			}
		})
	}
}

// ── RateLimit ──

type countingLimiter struct {
	mu    sync.Mutex
	seen  map[string]int
	limit int
	err   error
}

func (l *countingLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = map[string]int{}
	}
	l.seen[key]++
	return l.seen[key] <= limit, nil
}

func rateLimitedEngine(limiter Limiter, limit int) *gin.Engine {
	r := gin.New()
	r.POST("/ai/classify/", RateLimit(limiter, limit, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	r := rateLimitedEngine(&countingLimiter{}, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/ai/classify/", nil))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}
}

func TestRateLimit_DegradesOpen(t *testing.T) {
	for name, limiter := range map[string]Limiter{
		"nil limiter":   nil,
		"limiter error": &countingLimiter{err: errors.New("redis down")},
	} {
		t.Run(name, func(t *testing.T) {
			r := rateLimitedEngine(limiter, 1)
			for i := 0; i < 3; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest("POST", "/ai/classify/", nil))
				if w.Code != http.StatusOK {
					t.Fatalf("request %d: expected 200, got %d", i, w.Code)
				}
			}
		})
	}
}

// ── CORS ──

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://kairoo.ca/"}))
	r.POST("/api/ai/classify/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/ai/classify/", nil)
	req.Header.Set("Origin", "https://kairoo.ca")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://kairoo.ca" {
		t.Errorf("expected allowed origin, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got %q", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://kairoo.ca"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}

// ── BodyLimit / RequestID / SecurityHeaders / Logger ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(`{"a":1}`)))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for a small body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("expected the caller's id, got %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	got := w.Header().Get("X-Request-ID")
	if len(got) != 36 || got != w.Body.String() {
		t.Errorf("expected a fresh uuid, got %q (body %q)", got, w.Body.String())
	}
}

func TestSecurityHeadersAndLogger(t *testing.T) {
	r := gin.New()
	r.Use(Logger(zap.NewNop()), SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("expected %s to be set", h)
		}
	}
}
