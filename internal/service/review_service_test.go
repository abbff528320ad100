package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/model"
)

func (d *domain) review(t *testing.T, tourID, userID uint64, rating int) *model.Review {
	t.Helper()
	r, err := d.revSvc.Create(context.Background(), &model.Review{
		Review: "Nice tour", Rating: rating, Tour: model.NewRef(tourID), User: model.NewRef(userID),
	})
	require.NoError(t, err)
	return r
}

func (d *domain) ratings(t *testing.T, tourID uint64) (float64, int) {
	t.Helper()
	tour := d.tours.rows[tourID]
	return tour.RatingsAverage, tour.RatingsQuantity
}

func TestRatingsFollowReviews(t *testing.T) {
	d := newDomain()
	ctx := context.Background()
	tour, err := d.tourSvc.Create(ctx, sampleTour("The City Wanderer"))
	require.NoError(t, err)
	a, b, c := d.addUser(t, "a", "user"), d.addUser(t, "b", "user"), d.addUser(t, "c", "user")

	r1 := d.review(t, tour.ID, a.ID, 5)
	avg, n := d.ratings(t, tour.ID)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, n)

	d.review(t, tour.ID, b.ID, 4)
	r3 := d.review(t, tour.ID, c.ID, 4)
	avg, n = d.ratings(t, tour.ID)
	assert.Equal(t, 4.3, avg)
	assert.Equal(t, 3, n)

	_, err = d.revSvc.Update(ctx, r3.ID, map[string]any{"rating": 1})
	require.NoError(t, err)
	avg, _ = d.ratings(t, tour.ID)
	assert.Equal(t, 3.3, avg)

	require.NoError(t, d.revSvc.Delete(ctx, r1.ID))
	avg, n = d.ratings(t, tour.ID)
	assert.Equal(t, 2.5, avg)
	assert.Equal(t, 2, n)

	for id := range d.reviews.rows {
		require.NoError(t, d.revSvc.Delete(ctx, id))
	}
	avg, n = d.ratings(t, tour.ID)
	assert.Equal(t, 4.5, avg)
	assert.Zero(t, n)
}

func TestSecondReviewBySameUserIsRejected(t *testing.T) {
	d := newDomain()
	tour, err := d.tourSvc.Create(context.Background(), sampleTour("The Star Gazer"))
	require.NoError(t, err)
	u := d.addUser(t, "u", "user")
	d.review(t, tour.ID, u.ID, 3)

	_, err = d.revSvc.Create(context.Background(), &model.Review{
		Review: "Again", Rating: 5, Tour: model.NewRef(tour.ID), User: model.NewRef(u.ID),
	})
	code, msg := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, msg, "Duplicate field value")

	avg, n := d.ratings(t, tour.ID)
	assert.Equal(t, 3.0, avg)
	assert.Equal(t, 1, n)
}

func TestReviewUpdateKeepsTourAndUser(t *testing.T) {
	d := newDomain()
	tour, err := d.tourSvc.Create(context.Background(), sampleTour("The Northern Lights"))
	require.NoError(t, err)
	u := d.addUser(t, "u", "user")
	r := d.review(t, tour.ID, u.ID, 3)

	got, err := d.revSvc.Update(context.Background(), r.ID, map[string]any{"review": "  Changed  ", "tour": 99, "user": 77})
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Review)
	assert.Equal(t, tour.ID, got.Tour.ID)
	assert.Equal(t, u.ID, got.User.ID)
}

func TestReviewValidation(t *testing.T) {
	d := newDomain()
	_, err := d.revSvc.Create(context.Background(), &model.Review{Rating: 6})
	code, msg := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, msg, "Review can not be empty!")
	assert.Contains(t, msg, "Rating must be between 1 and 5")
	assert.Contains(t, msg, "Review must belong to a tour.")
	assert.Empty(t, d.reviews.rows)
}

func TestDeleteMissingReview(t *testing.T) {
	d := newDomain()
	code, msg := statusOf(t, d.revSvc.Delete(context.Background(), 9))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No document found with ID: 9", msg)
}
