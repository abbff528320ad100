package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/model"
)

// registerUsers mounts /api/v1/users: open session endpoints, self-service
// for any signed-in user and admin-only management.  Deleting a user drops
// their reviews, so that route purges the cache like other review writes.
func registerUsers(g *echo.Group, a *handler.AuthHandler, h *handler.UserHandler, m guards) {
	g.POST("/signup", a.SignUp)
	g.POST("/login", a.LogIn)
	g.GET("/logout", a.LogOut)
	g.POST("/forgotPassword", a.ForgotPassword)
	g.PATCH("/resetPassword/:token", a.ResetPassword)

	g.PATCH("/updateMyPassword", a.UpdateMyPassword, m.protect)
	g.GET("/me", h.GetMe, m.protect)
	g.PATCH("/updateMe", h.UpdateMe, m.protect)
	g.DELETE("/deleteMe", h.DeleteMe, m.protect)

	admin := m.restrictTo(model.RoleAdmin)
	g.GET("", h.GetAll, admin...)
	g.POST("", h.CreateOne, admin...)
	g.GET("/:id", h.GetOne, admin...)
	g.PATCH("/:id", h.UpdateOne, admin...)
	g.DELETE("/:id", h.DeleteOne, append(admin, m.purge)...)
}
