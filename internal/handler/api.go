// Package handler adapts the dispatcher to echo: binding, per-request
// deadlines and the mapping from outcomes to HTTP status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pms-backend/internal/dispatch"
	"github.com/iliyamo/pms-backend/internal/service"
	"github.com/iliyamo/pms-backend/internal/token"
)

// API turns HTTP requests into dispatcher requests and dispatcher results
// into JSON responses.
type API struct {
	d       *dispatch.Dispatcher
	timeout time.Duration
	logger  *log.Logger
}

func NewAPI(d *dispatch.Dispatcher, timeout time.Duration, logger *log.Logger) *API {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &API{d: d, timeout: timeout, logger: logger}
}

func (a *API) context(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), a.timeout)
}

// fail writes the response for an error returned by the dispatcher.
func (a *API) fail(c echo.Context, err error) error {
	var verr *dispatch.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": verr.Fields})
	case errors.Is(err, token.ErrMalformedToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	default:
		a.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// failureStatus maps the kind carried by an unsuccessful response.
func failureStatus(kind error) int {
	switch {
	case errors.Is(kind, service.ErrConflict), errors.Is(kind, service.ErrConstraint):
		return http.StatusConflict
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

func sendCommand[Req any](a *API, c echo.Context, req Req, status int) error {
	ctx, cancel := a.context(c)
	defer cancel()
	res, err := dispatch.Send[Req, service.CommandResponse](ctx, a.d, req)
	if err != nil {
		return a.fail(c, err)
	}
	if !res.IsSuccessful() {
		return c.JSON(failureStatus(res.Err()), res)
	}
	return c.JSON(status, res)
}

func sendQuery[Req, Res any](a *API, c echo.Context, req Req) ([]Res, error) {
	ctx, cancel := a.context(c)
	defer cancel()
	return dispatch.Send[Req, []Res](ctx, a.d, req)
}

// Resource is the set of CRUD endpoints of one collection.
type Resource struct {
	List   echo.HandlerFunc
	Get    echo.HandlerFunc
	Create echo.HandlerFunc
	Update echo.HandlerFunc
	Delete echo.HandlerFunc
}

// crud adapts the five request types of a feature to HTTP. Q and R are
// the query request and projection, C, U and D the create, update and
// delete requests.
type crud[Q, R, C, U, D any] struct {
	query  func(c echo.Context) (Q, error)
	withID func(q Q, id int64) Q
	update func(u U, id int64) U
	remove func(id int64) D
}

func (s crud[Q, R, C, U, D]) resource(a *API) Resource {
	return Resource{
		List: func(c echo.Context) error {
			q, err := s.query(c)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query"})
			}
			rows, err := sendQuery[Q, R](a, c, q)
			if err != nil {
				return a.fail(c, err)
			}
			return c.JSON(http.StatusOK, rows)
		},
		Get: func(c echo.Context) error {
			id, ok := pathID(c)
			if !ok {
				return badID(c)
			}
			var q Q
			rows, err := sendQuery[Q, R](a, c, s.withID(q, id))
			if err != nil {
				return a.fail(c, err)
			}
			if len(rows) == 0 {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			}
			return c.JSON(http.StatusOK, rows[0])
		},
		Create: func(c echo.Context) error {
			var req C
			if err := c.Bind(&req); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
			}
			return sendCommand(a, c, req, http.StatusCreated)
		},
		Update: func(c echo.Context) error {
			id, ok := pathID(c)
			if !ok {
				return badID(c)
			}
			var req U
			if err := c.Bind(&req); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
			}
			return sendCommand(a, c, s.update(req, id), http.StatusOK)
		},
		Delete: func(c echo.Context) error {
			id, ok := pathID(c)
			if !ok {
				return badID(c)
			}
			return sendCommand(a, c, s.remove(id), http.StatusOK)
		},
	}
}
