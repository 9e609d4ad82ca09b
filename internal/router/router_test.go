package router_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pms-backend/internal/database"
	"github.com/iliyamo/pms-backend/internal/handler"
	"github.com/iliyamo/pms-backend/internal/repository"
	"github.com/iliyamo/pms-backend/internal/router"
	"github.com/iliyamo/pms-backend/internal/service"
	"github.com/iliyamo/pms-backend/internal/testing/testdb"
	"github.com/iliyamo/pms-backend/internal/token"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	logger := log.New(io.Discard)
	db := testdb.New(t)
	require.NoError(t, database.Seed(context.Background(), db, database.SeedOptions{}))

	tokens := token.NewService(token.Config{
		SigningKey:                 "0123456789abcdef0123456789abcdef",
		Issuer:                     "pms",
		Audience:                   "pms",
		ExpirationMinutes:          15,
		RefreshTokenExpirationDays: 1,
	})
	store := repository.NewStore(db, nil, logger)
	d, err := service.NewDispatcher(service.New(store, tokens, nil, "TR"), logger)
	require.NoError(t, err)

	e := echo.New()
	router.Register(e, router.Deps{
		API:       handler.NewAPI(d, time.Second, logger),
		Tokens:    tokens,
		DB:        db,
		AdminRole: "Admin",
	})
	return e
}

func do(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type tokenBody struct {
	ID           int64  `json:"id"`
	IsSuccessful bool   `json:"isSuccessful"`
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func loginAs(t *testing.T, e *echo.Echo, user, password string) tokenBody {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/users/token", "", `{"userName":"`+user+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tb tokenBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tb))
	return tb
}

func TestHealth(t *testing.T) {
	e := newServer(t)
	rec := do(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginAndMe(t *testing.T) {
	e := newServer(t)
	tb := loginAs(t, e, "admin", "admin")
	assert.True(t, tb.IsSuccessful)
	assert.Equal(t, "Token created successfully.", tb.Message)
	assert.True(t, strings.HasPrefix(tb.Token, token.BearerPrefix))

	rec := do(e, http.MethodGet, "/api/users/me", tb.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "admin", me["userName"])
	assert.NotContains(t, me, "password")
	assert.NotContains(t, me, "refreshToken")

	rec = do(e, http.MethodPost, "/api/users/token", "", `{"userName":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Active user with the user name and password not found!")
}

func TestRefreshEndpoint(t *testing.T) {
	e := newServer(t)
	tb := loginAs(t, e, "user", "user")

	body := `{"token":"` + tb.Token + `","refreshToken":"` + tb.RefreshToken + `"}`
	rec := do(e, http.MethodPost, "/api/users/refresh-token", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Token created successfully.")

	rec = do(e, http.MethodPost, "/api/users/refresh-token", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found!")

	rec = do(e, http.MethodPost, "/api/users/refresh-token", "", `{"token":"garbage","refreshToken":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestWritesNeedAdmin(t *testing.T) {
	e := newServer(t)
	user := loginAs(t, e, "user", "user")
	admin := loginAs(t, e, "admin", "admin")

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/roles", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/roles", user.Token, "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/api/skills", user.Token, `{"name":"Rust"}`).Code)

	rec := do(e, http.MethodPost, "/api/skills", admin.Token, `{"name":"Rust"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created tokenBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Skill created successfully.", created.Message)

	rec = do(e, http.MethodPost, "/api/skills", admin.Token, `{"name":"rust"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/api/skills", admin.Token, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)

	path := "/api/skills/" + jsonID(created.ID)
	rec = do(e, http.MethodPut, path, admin.Token, `{"name":"Rust lang"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e, http.MethodGet, path, user.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rust lang")

	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, path, admin.Token, "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, path, user.Token, "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, path, admin.Token, "").Code)
}

func TestRoleDeleteConflict(t *testing.T) {
	e := newServer(t)
	admin := loginAs(t, e, "admin", "admin")

	rec := do(e, http.MethodGet, "/api/roles?name=adm", admin.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var roles []struct {
		ID      int64   `json:"id"`
		UserIDs []int64 `json:"userIds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	require.Len(t, roles, 1)
	assert.NotEmpty(t, roles[0].UserIDs)

	rec = do(e, http.MethodDelete, "/api/roles/"+jsonID(roles[0].ID), admin.Token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "relational users")
}

func TestWorkFilters(t *testing.T) {
	e := newServer(t)
	user := loginAs(t, e, "user", "user")

	rec := do(e, http.MethodGet, "/api/works?dueDateBegin=not-a-date", user.Token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/works?startDateBegin=2000-01-01", user.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var works []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &works))
	assert.NotEmpty(t, works)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
