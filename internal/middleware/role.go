package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

// RestrictTo lets only users holding one of roles through.  It must run
// after Protect.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil || !allowed[u.Role] {
				return apperr.Forbidden("You do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
