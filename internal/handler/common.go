package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/middleware"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
)

// getUserID extracts the user_id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// actor names the caller in audit columns (created_by, checked_in_by).
func actor(c echo.Context) string {
	uid, err := getUserID(c)
	if err != nil {
		return ""
	}
	return "user:" + strconv.FormatUint(uid, 10)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryBool parses an optional boolean query parameter.
func queryBool(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// queryInt parses an integer query parameter clamped to [lo, hi].
func queryInt(c echo.Context, name string, def, lo, hi int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return max(lo, min(n, hi))
}

// storeError maps repository sentinels to responses.  Anything else is a
// 500 with the given fallback message.
func storeError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrPhoneExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "phone already registered"})
	case errors.Is(err, repository.ErrSeatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrInvalidSlot):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "companion seat requires ticket_count 2"})
	case errors.Is(err, repository.ErrInvalidConfirmToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation token"})
	}
	c.Logger().Errorf("%s: %v", fallback, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}
