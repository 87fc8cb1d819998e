package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/drop-waitlist/internal/config"
	"github.com/iliyamo/drop-waitlist/internal/utils"
)

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"uid": c.Get(CtxUserID), "role": c.Get(CtxRole)})
	}, JWTAuth("secret"))

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "garbage").Code)

	tok, err := utils.NewAccessToken("secret", 7, "USER", 5, time.Now())
	require.NoError(t, err)
	rec := serve(e, http.MethodGet, "/me", tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":7,"role":"USER"}`, rec.Body.String())
}

func TestRoleGates(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	withRole := func(role string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if role != "" {
					c.Set(CtxRole, role)
				}
				return next(c)
			}
		}
	}
	tests := []struct {
		name string
		gate echo.MiddlewareFunc
		role string
		want int
	}{
		{"require allowed", RequireRole("USER", "ADMIN"), "ADMIN", http.StatusNoContent},
		{"require other", RequireRole("USER"), "ADMIN", http.StatusForbidden},
		{"require missing", RequireRole("USER"), "", http.StatusForbidden},
		{"deny match", DenyRole("ADMIN"), "ADMIN", http.StatusForbidden},
		{"deny other", DenyRole("ADMIN"), "USER", http.StatusNoContent},
		{"deny missing", DenyRole("ADMIN"), "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/", ok, withRole(tt.role), tt.gate)
			assert.Equal(t, tt.want, serve(e, http.MethodGet, "/", "").Code)
		})
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/drops/5/claim", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/drops/:id/claim")
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set(CtxUserID, uint64(9))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	for strategy, want := range map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:9",
		"user_route": "rl:user:9:route:POST /v1/drops/:id/claim",
		"user_drop":  "rl:user:9:drop:5:route:POST /v1/drops/:id/claim",
		"":           "rl:ip:10.0.0.1:user:9:route:POST /v1/drops/:id/claim",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}

	anon := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", userKey(anon))
}

func TestRedisMiddlewareDisabledWithoutClient(t *testing.T) {
	e := echo.New()
	calls := 0
	e.GET("/", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	},
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
	)
	for i := 0; i < 3; i++ {
		rec := serve(e, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, calls)
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache"}
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/drops")
		return cacheKey(cfg, c)
	}
	assert.Equal(t, key("/v1/drops?page=1"), key("/v1/drops?page=1"))
	assert.NotEqual(t, key("/v1/drops?page=1"), key("/v1/drops?page=2"))

	cfg.KeyStrategy = "route"
	assert.Equal(t, key("/v1/drops?page=1"), key("/v1/drops?page=2"))
}

func TestCacheKeySeparatesPathParams(t *testing.T) {
	for _, strategy := range []string{"", "route", "method_route_query"} {
		t.Run("strategy="+strategy, func(t *testing.T) {
			cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: strategy}
			keys := map[string]string{}
			e := echo.New()
			e.GET("/v1/drops/:id", func(c echo.Context) error {
				keys[c.Param("id")] = cacheKey(cfg, c)
				return c.NoContent(http.StatusOK)
			})
			serve(e, http.MethodGet, "/v1/drops/1", "")
			serve(e, http.MethodGet, "/v1/drops/2", "")
			require.Len(t, keys, 2)
			assert.NotEqual(t, keys["1"], keys["2"])
		})
	}
}

func TestCaptureWriterTruncates(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &captureWriter{ResponseWriter: rec, limit: 4}
	_, _ = w.Write([]byte("abc"))
	_, _ = w.Write([]byte("def"))
	assert.True(t, w.truncated)
	assert.Equal(t, "abcdef", rec.Body.String())
}
