package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
)

// NewReviewHandler serves /reviews and /tours/:tourId/reviews.
func NewReviewHandler(reviews Resource[model.Review], maxLimit int) *Factory[model.Review] {
	f := NewFactory(reviews, maxLimit)
	f.Parent = &Parent{Param: "tourId", Column: "tour_id"}
	f.BeforeCreate = setUserAndTourIDs
	return f
}

// setUserAndTourIDs takes the tour from the nested route when the body has
// none.  The author is always the signed-in user.
func setUserAndTourIDs(c echo.Context, payload map[string]any) error {
	if _, ok := payload["tour"]; !ok && c.Param("tourId") != "" {
		id, err := idParam(c, "tourId", "tourId")
		if err != nil {
			return err
		}
		payload["tour"] = id
	}
	u := middleware.CurrentUser(c)
	if u == nil {
		return apperr.Unauthorized("You are not logged in! Please log in to get access")
	}
	payload["user"] = u.ID
	return nil
}
