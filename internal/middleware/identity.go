package middleware

import "github.com/labstack/echo/v4"

// identity names the caller for rate limit keys: the user id claim when
// JWTAuth ran, "anon" otherwise.
func identity(c echo.Context) string {
	if s, ok := c.Get(KeyUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
