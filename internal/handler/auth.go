package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pms-backend/internal/dispatch"
	"github.com/iliyamo/pms-backend/internal/middleware"
	"github.com/iliyamo/pms-backend/internal/service"
)

// Token logs a user in: POST /api/users/token {userName, password}.
func (a *API) Token(c echo.Context) error {
	var req service.TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return sendToken(a, c, req)
}

// RefreshToken exchanges a possibly expired access token and its refresh
// token for a new pair: POST /api/users/refresh-token {token, refreshToken}.
func (a *API) RefreshToken(c echo.Context) error {
	var req service.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return sendToken(a, c, req)
}

func sendToken[Req any](a *API, c echo.Context, req Req) error {
	ctx, cancel := a.context(c)
	defer cancel()
	res, err := dispatch.Send[Req, service.TokenResponse](ctx, a.d, req)
	if err != nil {
		return a.fail(c, err)
	}
	if !res.IsSuccessful() {
		return c.JSON(failureStatus(res.Err()), res)
	}
	return c.JSON(http.StatusOK, res)
}

// Me returns the authenticated user's projection.
func (a *API) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := p.UserID()
	if err != nil {
		return a.fail(c, err)
	}
	rows, err := sendQuery[service.UserQueryRequest, service.UserQueryResponse](a, c, service.UserQueryRequest{ID: id})
	if err != nil {
		return a.fail(c, err)
	}
	if len(rows) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, rows[0])
}
