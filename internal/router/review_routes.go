package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/model"
)

// registerReviews mounts /api/v1/reviews.  Every route needs a session.
func registerReviews(g *echo.Group, h *handler.Factory[model.Review], m guards) {
	g.GET("", h.GetAll, m.protect)
	g.POST("", h.CreateOne, append(m.restrictTo(model.RoleUser), m.purge)...)

	g.GET("/:id", h.GetOne, m.protect)
	g.PATCH("/:id", h.UpdateOne, append(m.restrictTo(model.RoleUser, model.RoleAdmin), m.purge)...)
	g.DELETE("/:id", h.DeleteOne, append(m.restrictTo(model.RoleUser, model.RoleAdmin), m.purge)...)
}
