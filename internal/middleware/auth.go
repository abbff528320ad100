package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/model"
)

// CookieName is the cookie the session token is also delivered in.
const CookieName = "jwt"

// LoggedOutValue replaces the token on logout.  It never parses, so a
// browser that still sends it is simply treated as anonymous.
const LoggedOutValue = "loggedout"

// TokenResolver turns a bearer token into the active user it belongs to.
type TokenResolver interface {
	Protect(ctx context.Context, token string) (*model.User, error)
}

// Protect requires a valid session token from the Authorization header or
// the jwt cookie and stores the resolved user in the context.
func Protect(auth TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := auth.Protect(c.Request().Context(), tokenFrom(c))
			if err != nil {
				return err
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

// tokenFrom prefers the Authorization header over the cookie.
func tokenFrom(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != LoggedOutValue {
		return ck.Value
	}
	return ""
}
