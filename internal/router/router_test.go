package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-assignment/internal/config"
	"github.com/iliyamo/event-seat-assignment/internal/handler"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/utils"
)

const secret = "router-secret"

func newServer() *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, nil)
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil), secret)
	RegisterAdmin(e, AdminHandlers{
		Auth:        handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil),
		Registrants: handler.NewAdminRegistrantHandler(nil, nil),
		Seats:       handler.NewAdminSeatHandler(nil, nil, nil),
		Settings:    handler.NewSettingsHandler(nil, seating.DefaultCatalog(), nil),
	}, secret)
	RegisterCheckin(e, handler.NewCheckinHandler(nil, nil, nil), secret, nil)
	RegisterMailbox(e, handler.NewMailboxHandler(nil), secret, nil)
	return e
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 3, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealth(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/readyz", ""))
}

func TestRoleGates(t *testing.T) {
	e := newServer()
	admin, staff := bearer(t, "ADMIN"), bearer(t, "STAFF")

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/admin/registrants/abc", ""))
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/admin/registrants/abc", staff))
	// reaches the handler, which rejects the id before touching a store
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/admin/registrants/abc", admin))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/admin/checkin/lists/abc", ""))
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/admin/checkin/lists/abc", staff))
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/admin/checkin/lists/abc", admin))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPut, "/v1/admin/inquiries/abc/answer", ""))
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodDelete, "/v1/admin/stories/abc", staff))
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodDelete, "/v1/admin/stories/abc", admin))
	// public lookup needs no token; the phone is rejected before the store
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/inquiries/phone/123", ""))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/me", bearer(t, "CUSTOMER")))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/me", staff))
}
