// Package router maps URLs to handlers and decides which middleware
// guards each route.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pms-backend/internal/handler"
	"github.com/iliyamo/pms-backend/internal/middleware"
	"github.com/iliyamo/pms-backend/internal/token"
)

// Deps are the pieces the routes need. RateLimit and Cache may be nil.
type Deps struct {
	API       *handler.API
	Tokens    *token.Service
	DB        handler.Pinger
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	AdminRole string
}

// Register adds every route to e.
//
//	GET  /healthz
//	POST /api/users/token, /api/users/refresh-token      rate limited
//	GET  /api/users/me                                   authenticated
//	GET  /api/{collection}, /api/{collection}/:id        authenticated, cached
//	POST /api/{collection}, PUT|DELETE .../:id           authenticated, admin role, invalidates cache
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	api := e.Group("/api")

	limited := chain(d.RateLimit)
	api.POST("/users/token", d.API.Token, limited...)
	api.POST("/users/refresh-token", d.API.RefreshToken, limited...)

	authed := chain(middleware.JWTAuth(d.Tokens))
	api.GET("/users/me", d.API.Me, authed...)

	read := chain(middleware.JWTAuth(d.Tokens), d.Cache)
	write := chain(middleware.JWTAuth(d.Tokens), middleware.RequireRole(d.AdminRole), d.Cache)

	for path, res := range map[string]handler.Resource{
		"/roles":    d.API.Roles(),
		"/skills":   d.API.Skills(),
		"/tags":     d.API.Tags(),
		"/projects": d.API.Projects(),
		"/works":    d.API.Works(),
		"/users":    d.API.Users(),
	} {
		api.GET(path, res.List, read...)
		api.GET(path+"/:id", res.Get, read...)
		api.POST(path, res.Create, write...)
		api.PUT(path+"/:id", res.Update, write...)
		api.DELETE(path+"/:id", res.Delete, write...)
	}
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}
