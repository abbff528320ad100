package handler

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/model"
)

// TourDomain is the tour service beyond plain CRUD.
type TourDomain interface {
	Resource[model.Tour]
	Stats(ctx context.Context) ([]model.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error)
	Within(ctx context.Context, distance float64, latlng, unit string) ([]model.Tour, error)
	Distances(ctx context.Context, latlng, unit string) ([]model.TourDistance, error)
}

type TourHandler struct {
	*Factory[model.Tour]
	Tours TourDomain
}

func NewTourHandler(tours TourDomain, maxLimit int) *TourHandler {
	return &TourHandler{Factory: NewFactory[model.Tour](tours, maxLimit), Tours: tours}
}

// topCheap is the query behind /top-5-cheap.
var topCheap = url.Values{
	"limit":  {"5"},
	"sort":   {"-ratingsAverage,price"},
	"fields": {"name,price,ratingsAverage,summary,difficulty"},
}

// TopCheap lists the five best rated, cheapest tours.  Other query keys
// still filter.
func (h *TourHandler) TopCheap(c echo.Context) error {
	params := url.Values{}
	for k, v := range c.QueryParams() {
		params[k] = v
	}
	for k, v := range topCheap {
		params[k] = v
	}
	return h.list(c, params)
}

func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"stats": stats})
}

func (h *TourHandler) MonthlyPlan(c echo.Context) error {
	raw := c.Param("year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return &apperr.CastError{Path: "year", Value: raw, Err: err}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	plan, err := h.Tours.MonthlyPlan(ctx, year)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"plan": plan})
}

// Within serves /tours-within/:distance/center/:latlng/unit/:unit.
func (h *TourHandler) Within(c echo.Context) error {
	raw := c.Param("distance")
	distance, err := strconv.ParseFloat(raw, 64)
	if err == nil && (math.IsNaN(distance) || math.IsInf(distance, 0)) {
		err = strconv.ErrSyntax
	}
	if err != nil {
		return &apperr.CastError{Path: "distance", Value: raw, Err: err}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tours, err := h.Tours.Within(ctx, distance, c.Param("latlng"), c.Param("unit"))
	if err != nil {
		return err
	}
	return many(c, "tours", tours, len(tours))
}

// Distances serves /distances/:latlng/unit/:unit.
func (h *TourHandler) Distances(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	distances, err := h.Tours.Distances(ctx, c.Param("latlng"), c.Param("unit"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"distances": distances})
}
