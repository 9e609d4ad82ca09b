package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(c *clock) *Service {
	return NewService(Config{
		SigningKey:                 testKey,
		Issuer:                     "pms",
		Audience:                   "pms-clients",
		ExpirationMinutes:          15,
		RefreshTokenExpirationDays: 1,
	}, WithClock(c.now))
}

func issue(t *testing.T, s *Service) string {
	t.Helper()
	raw, err := s.CreateAccessToken(UserClaims(7, "admin", []string{"Admin", "User"}), s.AccessExpiration())
	require.NoError(t, err)
	return raw
}

func TestCreateAndExtract(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(c)
	raw := issue(t, s)

	p, err := s.ExtractClaims(raw)
	require.NoError(t, err)

	id, err := p.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "admin", p.Name())
	assert.Equal(t, []string{"Admin", "User"}, p.Roles())
	assert.True(t, p.HasRole("User"))
	assert.False(t, p.HasRole("Owner"))
	assert.Equal(t, "7", p.Claims["sub"])
	assert.NotEmpty(t, p.TokenID)
	assert.True(t, c.t.Add(15*time.Minute).Equal(p.ExpiresAt))
}

func TestExtractToleratesExpiry(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(c)
	raw := issue(t, s)

	c.t = c.t.Add(48 * time.Hour)

	_, err := s.Validate(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrMalformedToken)

	p, err := s.ExtractClaims(raw)
	require.NoError(t, err)
	id, err := p.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestValidateExpiredForeignTokenIsMalformed(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	for name, cfg := range map[string]Config{
		"issuer":   {SigningKey: testKey, Issuer: "other", Audience: "pms-clients", ExpirationMinutes: 15, RefreshTokenExpirationDays: 1},
		"audience": {SigningKey: testKey, Issuer: "pms", Audience: "others", ExpirationMinutes: 15, RefreshTokenExpirationDays: 1},
	} {
		t.Run(name, func(t *testing.T) {
			raw := issue(t, NewService(cfg, WithClock(c.now)))
			later := newTestService(&clock{t: c.t.Add(48 * time.Hour)})

			_, err := later.Validate(raw)
			assert.ErrorIs(t, err, ErrMalformedToken)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestExtractAcceptsBearerPrefix(t *testing.T) {
	s := newTestService(&clock{t: time.Now()})
	raw := issue(t, s)

	_, err := s.ExtractClaims(BearerPrefix + raw)
	assert.NoError(t, err)
}

func tamper(raw string) string {
	i := len(raw) - 10
	ch := byte('A')
	if raw[i] == 'A' {
		ch = 'B'
	}
	return raw[:i] + string(ch) + raw[i+1:]
}

func TestAlteredSignatureIsMalformedRegardlessOfExpiry(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(c)
	bad := tamper(issue(t, s))

	_, err := s.ExtractClaims(bad)
	var me *MalformedTokenError
	require.True(t, errors.As(err, &me))
	assert.ErrorIs(t, err, ErrMalformedToken)

	c.t = c.t.Add(48 * time.Hour)
	_, err = s.ExtractClaims(bad)
	assert.ErrorIs(t, err, ErrMalformedToken)
	_, err = s.Validate(bad)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestMalformedInputs(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(c)

	other := NewService(Config{SigningKey: strings.Repeat("x", 32), Issuer: "pms", Audience: "pms-clients", ExpirationMinutes: 15}, WithClock(c.now))
	foreignKey := issue(t, other)

	wrongIssuer := NewService(Config{SigningKey: testKey, Issuer: "someone-else", Audience: "pms-clients", ExpirationMinutes: 15}, WithClock(c.now))
	foreignIssuer := issue(t, wrongIssuer)

	wrongAudience := NewService(Config{SigningKey: testKey, Issuer: "pms", Audience: "elsewhere", ExpirationMinutes: 15}, WithClock(c.now))
	foreignAudience := issue(t, wrongAudience)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id": "7", "iss": "pms", "aud": "pms-clients",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"id": "7", "iss": "pms", "aud": "pms-clients",
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":            "",
		"garbage":          "not-a-token",
		"two segments":     "abc.def",
		"foreign key":      foreignKey,
		"foreign issuer":   foreignIssuer,
		"foreign audience": foreignAudience,
		"alg none":         none,
		"alg hs512":        hs512,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.ExtractClaims(raw)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestPrincipalWithoutIDIsMalformed(t *testing.T) {
	s := newTestService(&clock{t: time.Now()})
	raw, err := s.CreateAccessToken(map[string]string{ClaimName: "nobody"}, s.AccessExpiration())
	require.NoError(t, err)

	p, err := s.ExtractClaims(raw)
	require.NoError(t, err)
	_, err = p.UserID()
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestRefreshTokensAreRandom(t *testing.T) {
	s := newTestService(&clock{t: time.Now()})
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		v, err := s.CreateRefreshToken()
		require.NoError(t, err)
		assert.Len(t, v, 64)
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestExpirations(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(c)
	assert.True(t, c.t.Add(15*time.Minute).Equal(s.AccessExpiration()))
	assert.True(t, c.t.Add(24*time.Hour).Equal(s.RefreshExpiration()))
	assert.False(t, s.SlidingRefresh())
}
