package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/model"
)

// registerTours mounts /api/v1/tours and the nested reviews collection.
// Reads are public except the monthly plan; writes need admin or lead-guide.
func registerTours(g *echo.Group, h *handler.TourHandler, reviews *handler.Factory[model.Review], m guards) {
	editors := append(m.restrictTo(model.RoleAdmin, model.RoleLeadGuide), m.purge)

	g.GET("", h.GetAll)
	g.POST("", h.CreateOne, editors...)

	g.GET("/top-5-cheap", h.TopCheap)
	g.GET("/tour-stats", h.Stats, m.cache)
	g.GET("/monthly-plan/:year", h.MonthlyPlan,
		append(m.restrictTo(model.RoleAdmin, model.RoleLeadGuide, model.RoleGuide), m.cache)...)
	g.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.Within)
	g.GET("/distances/:latlng/unit/:unit", h.Distances, m.cache)

	g.GET("/:id", h.GetOne)
	g.PATCH("/:id", h.UpdateOne, editors...)
	g.DELETE("/:id", h.DeleteOne, editors...)

	g.GET("/:tourId/reviews", reviews.GetAll, m.protect)
	g.POST("/:tourId/reviews", reviews.CreateOne, append(m.restrictTo(model.RoleUser), m.purge)...)
}
