package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// callerID identifies the caller for rate-limit keys: the staff user id
// when JWTAuth ran before, "anon" otherwise.
func callerID(c echo.Context) string {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
