// Package token issues and reads the signed access tokens and opaque
// refresh tokens used by the auth endpoints.
//
// Access tokens are HS256 JWTs signed with a process-wide key. Two read
// paths exist: Validate performs full validation including the expiry
// window and is what request authentication uses; ExtractClaims verifies
// signature, algorithm, issuer and audience but skips every time-based
// check, which is what the refresh exchange needs to read the identity
// out of an access token that has already expired.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claim names written into access tokens.
const (
	ClaimID   = "id"
	ClaimName = "name"
	ClaimRole = "role"
)

// BearerPrefix is prepended to access tokens handed to clients.
const BearerPrefix = "Bearer "

var (
	// ErrMalformedToken is matched by *MalformedTokenError.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTokenExpired is returned by Validate for a well-formed token whose
	// validity window has passed.
	ErrTokenExpired = errors.New("token expired")
)

// MalformedTokenError reports a token whose structure, signature,
// algorithm, issuer or audience is wrong.
type MalformedTokenError struct {
	Reason string
	Err    error
}

func (e *MalformedTokenError) Error() string {
	if e.Err == nil {
		return "malformed token: " + e.Reason
	}
	return fmt.Sprintf("malformed token: %s: %v", e.Reason, e.Err)
}

func (e *MalformedTokenError) Unwrap() error { return e.Err }

func (e *MalformedTokenError) Is(target error) bool { return target == ErrMalformedToken }

// Config is the token configuration read at startup.
type Config struct {
	SigningKey                 string
	Issuer                     string
	Audience                   string
	ExpirationMinutes          int
	RefreshTokenExpirationDays int
	SlidingRefresh             bool
}

// Service is safe for concurrent use; it holds only read-only state.
type Service struct {
	cfg Config
	key []byte
	now func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{cfg: cfg, key: []byte(cfg.SigningKey), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current UTC time as seen by the service.
func (s *Service) Now() time.Time { return s.now().UTC() }

// AccessExpiration is the expiry for an access token issued now.
func (s *Service) AccessExpiration() time.Time {
	return s.Now().Add(time.Duration(s.cfg.ExpirationMinutes) * time.Minute)
}

// RefreshExpiration is the expiry for a refresh token issued now.
func (s *Service) RefreshExpiration() time.Time {
	return s.Now().Add(time.Duration(s.cfg.RefreshTokenExpirationDays) * 24 * time.Hour)
}

// SlidingRefresh reports whether a refresh exchange extends the refresh
// token's expiry.
func (s *Service) SlidingRefresh() bool { return s.cfg.SlidingRefresh }

// CreateAccessToken signs claims with the expiry given. Registered claims
// (iss, aud, exp, nbf, iat, jti) are added by the service; the id claim is
// mirrored into sub.
func (s *Service) CreateAccessToken(claims map[string]string, expiration time.Time) (string, error) {
	now := s.Now()
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	if id, ok := claims[ClaimID]; ok {
		mc["sub"] = id
	}
	mc["iss"] = s.cfg.Issuer
	mc["aud"] = s.cfg.Audience
	mc["exp"] = jwt.NewNumericDate(expiration)
	mc["nbf"] = jwt.NewNumericDate(now)
	mc["iat"] = jwt.NewNumericDate(now)
	mc["jti"] = uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ExtractClaims reads a token without checking its validity window. It
// fails only with *MalformedTokenError, never because of expiry alone.
func (s *Service) ExtractClaims(raw string) (*Principal, error) {
	return s.parse(raw, false)
}

// Validate reads a token and enforces its validity window. It returns
// ErrTokenExpired for an expired but otherwise sound token.
func (s *Service) Validate(raw string) (*Principal, error) {
	return s.parse(raw, true)
}

func (s *Service) parse(raw string, checkTime bool) (*Principal, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), BearerPrefix))
	if raw == "" {
		return nil, &MalformedTokenError{Reason: "empty token"}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if checkTime {
		opts = append(opts,
			jwt.WithIssuer(s.cfg.Issuer),
			jwt.WithAudience(s.cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(s.now),
		)
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	tok, err := jwt.Parse(raw, s.keyFunc, opts...)
	if err != nil {
		if checkTime && errors.Is(err, jwt.ErrTokenExpired) &&
			!errors.Is(err, jwt.ErrTokenInvalidIssuer) && !errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return nil, ErrTokenExpired
		}
		return nil, &MalformedTokenError{Reason: "parse", Err: err}
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, &MalformedTokenError{Reason: "invalid claims"}
	}
	if !checkTime {
		if err := s.checkParty(claims); err != nil {
			return nil, err
		}
	}
	return newPrincipal(claims), nil
}

// keyFunc supplies the signing key and rejects every non-HMAC method.
func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return s.key, nil
}

// checkParty verifies issuer and audience, which WithoutClaimsValidation
// leaves unchecked together with the time-based claims.
func (s *Service) checkParty(claims jwt.MapClaims) error {
	iss, err := claims.GetIssuer()
	if err != nil || iss != s.cfg.Issuer {
		return &MalformedTokenError{Reason: "issuer mismatch", Err: err}
	}
	aud, err := claims.GetAudience()
	if err != nil {
		return &MalformedTokenError{Reason: "audience", Err: err}
	}
	for _, a := range aud {
		if a == s.cfg.Audience {
			return nil
		}
	}
	return &MalformedTokenError{Reason: "audience mismatch"}
}

// CreateRefreshToken returns 32 bytes of crypto/rand data, hex encoded.
// The value carries no expiry; that lives on the user row.
func (s *Service) CreateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Principal is the identity read from an access token.
type Principal struct {
	Claims    map[string]string
	ExpiresAt time.Time
	TokenID   string
}

func newPrincipal(mc jwt.MapClaims) *Principal {
	p := &Principal{Claims: make(map[string]string, len(mc))}
	for k, v := range mc {
		if s, ok := v.(string); ok {
			p.Claims[k] = s
		}
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		p.ExpiresAt = exp.Time.UTC()
	}
	p.TokenID = p.Claims["jti"]
	return p
}

// UserID parses the id claim. A signed token without a numeric id claim
// cannot identify anyone and is treated as malformed.
func (p *Principal) UserID() (int64, error) {
	raw, ok := p.Claims[ClaimID]
	if !ok {
		return 0, &MalformedTokenError{Reason: "missing id claim"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &MalformedTokenError{Reason: "invalid id claim", Err: err}
	}
	return id, nil
}

// Name returns the user name claim.
func (p *Principal) Name() string { return p.Claims[ClaimName] }

// Roles splits the comma-joined role claim.
func (p *Principal) Roles() []string {
	raw := p.Claims[ClaimRole]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, r := range parts {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// HasRole reports whether the principal carries one of roles.
func (p *Principal) HasRole(roles ...string) bool {
	for _, have := range p.Roles() {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// UserClaims builds the claim set for a user from its stable attributes.
func UserClaims(id int64, userName string, roles []string) map[string]string {
	return map[string]string{
		ClaimID:   strconv.FormatInt(id, 10),
		ClaimName: userName,
		ClaimRole: strings.Join(roles, ","),
	}
}
