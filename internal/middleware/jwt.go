package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pms-backend/internal/token"
)

// Context keys set by JWTAuth.
const (
	KeyPrincipal = "principal"
	KeyUserID    = "user_id"
	KeyRole      = "role"
)

// JWTAuth validates the Bearer access token and stores the principal in
// the echo context, together with the user id and role claims for code
// that only needs those.
func JWTAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, token.BearerPrefix) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			p, err := tokens.Validate(auth)
			if errors.Is(err, token.ErrTokenExpired) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if _, err := p.UserID(); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(KeyPrincipal, p)
			c.Set(KeyUserID, p.Claims[token.ClaimID])
			c.Set(KeyRole, p.Claims[token.ClaimRole])
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by JWTAuth.
func PrincipalFrom(c echo.Context) (*token.Principal, bool) {
	p, ok := c.Get(KeyPrincipal).(*token.Principal)
	return p, ok && p != nil
}
