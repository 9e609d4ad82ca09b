package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pms-backend/internal/config"
	"github.com/iliyamo/pms-backend/internal/token"
)

func newTokens(now time.Time) *token.Service {
	return token.NewService(token.Config{
		SigningKey:                 "0123456789abcdef0123456789abcdef",
		Issuer:                     "pms",
		Audience:                   "pms",
		ExpirationMinutes:          15,
		RefreshTokenExpirationDays: 1,
	}, token.WithClock(func() time.Time { return now }))
}

func bearer(t *testing.T, s *token.Service, roles ...string) string {
	t.Helper()
	raw, err := s.CreateAccessToken(token.UserClaims(5, "alice", roles), s.AccessExpiration())
	require.NoError(t, err)
	return token.BearerPrefix + raw
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func protected(tokens *token.Service, roles ...string) *echo.Echo {
	e := echo.New()
	mws := []echo.MiddlewareFunc{JWTAuth(tokens)}
	if len(roles) > 0 {
		mws = append(mws, RequireRole(roles...))
	}
	e.GET("/x", func(c echo.Context) error {
		p, _ := PrincipalFrom(c)
		return c.String(http.StatusOK, p.Name()+" "+c.Get(KeyUserID).(string))
	}, mws...)
	return e
}

func TestJWTAuth(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := newTokens(now)
	e := protected(tokens)

	rec := serve(e, http.MethodGet, "/x", bearer(t, tokens, "User"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice 5", rec.Body.String())

	rec = serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec = serve(e, http.MethodGet, "/x", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")

	stale := bearer(t, newTokens(now.Add(-time.Hour)), "User")
	rec = serve(e, http.MethodGet, "/x", stale)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	e := protected(tokens, "Admin")

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", bearer(t, tokens, "User", "Admin")).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/x", bearer(t, tokens, "User")).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/x", bearer(t, tokens)).Code)
}

func TestLocalTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, nil, log.New(io.Discard)))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/login", "").Code)
	rec := serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLocalBucketRefills(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := newLocalBucket(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	b.now = func() time.Time { return now }

	d, err := b.take(nil, "k")
	require.NoError(t, err)
	assert.True(t, d.allowed)

	d, _ = b.take(nil, "k")
	assert.False(t, d.allowed)
	assert.Equal(t, time.Second, d.retryAfter)

	d, _ = b.take(nil, "other")
	assert.True(t, d.allowed, "keys are independent")

	now = now.Add(time.Second)
	d, _ = b.take(nil, "k")
	assert.True(t, d.allowed)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/users/token", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/users/token")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /api/users/token", rateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", rateKey(cfg, c))
	c.Set(KeyUserID, "9")
	assert.Equal(t, "rl:user:9", rateKey(cfg, c))
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1,2]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `[1,2]`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}

func TestCacheKeyIncludesGeneration(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/roles?name=ad", nil), httptest.NewRecorder())
	cfg := config.CacheConfig{Prefix: "pc", KeyStrategy: "route_query"}

	a, b := cacheKey(cfg, c, 1), cacheKey(cfg, c, 2)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "pc:1:")
}
