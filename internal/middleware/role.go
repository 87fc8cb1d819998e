package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects requests whose role (set by JWTAuth) is not one of
// roles with 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return roleGate(func(role string) bool { return allowed[role] })
}

// DenyRole rejects requests made with any of roles.  Admin accounts use
// it to stay off waitlists.
func DenyRole(roles ...string) echo.MiddlewareFunc {
	denied := make(map[string]bool, len(roles))
	for _, r := range roles {
		denied[r] = true
	}
	return roleGate(func(role string) bool { return role != "" && !denied[role] })
}

func roleGate(ok func(role string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if !ok(role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "FORBIDDEN"})
			}
			return next(c)
		}
	}
}
