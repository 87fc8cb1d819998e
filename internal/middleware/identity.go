package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey returns the authenticated user's ID as a string for use in
// Redis keys, or "anon" when the request is unauthenticated.
func userKey(c echo.Context) string {
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
