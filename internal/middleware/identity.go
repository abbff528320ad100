package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/model"
)

const userKey = "user"

// CurrentUser returns the user stored by Protect, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// userID identifies the caller for rate-limit keys; "guest" when anonymous.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "guest"
}
