//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/service"
)

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("natours"),
		tcmysql.WithUsername("natours"),
		tcmysql.WithPassword("natours"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "parseTime=true", "loc=UTC")
	require.NoError(t, err)
	db, err := database.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func TestMySQLRoundTrip(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	tourSvc := service.NewTourService(tours, reviews, users, logger)
	reviewSvc := service.NewReviewService(reviews, tours, users, logger)

	var authors []uint64
	for _, email := range []string{"ada@example.com", "bob@example.com"} {
		u := &model.User{Name: "Reviewer", Email: email, Role: model.RoleUser, Photo: model.DefaultPhoto, PasswordHash: "x", Active: true}
		require.NoError(t, users.Insert(ctx, u))
		authors = append(authors, u.ID)
	}

	tour, err := tourSvc.Create(ctx, &model.Tour{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   model.DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:   "tour-1-cover.jpg",
		StartDates: model.JSONList[time.Time]{
			time.Date(2021, 4, 25, 9, 0, 0, 0, time.UTC),
			time.Date(2021, 7, 20, 9, 0, 0, 0, time.UTC),
		},
		StartLocation: model.Point{Coordinates: []float64{-115.570154, 51.178456}},
		Guides:        model.Refs{model.NewRef(authors[0])},
	})
	require.NoError(t, err)
	assert.Equal(t, "the-forest-hiker", tour.Slug)

	_, err = tourSvc.Create(ctx, &model.Tour{
		Name: "The Forest Hiker", Duration: 1, MaxGroupSize: 1, Difficulty: model.DifficultyEasy,
		Price: 1, Summary: "dup", ImageCover: "x.jpg",
	})
	require.Error(t, err)
	assert.Equal(t, "Duplicate field value: The Forest Hiker. Please use another value!", apperr.Translate(err).Message)

	for i, rating := range []int{5, 4} {
		_, err := reviewSvc.Create(ctx, &model.Review{
			Review: "Great trip", Rating: rating,
			Tour: model.NewRef(tour.ID), User: model.NewRef(authors[i]),
		})
		require.NoError(t, err)
	}
	_, err = reviewSvc.Create(ctx, &model.Review{
		Review: "Again", Rating: 1, Tour: model.NewRef(tour.ID), User: model.NewRef(authors[0]),
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.Translate(err).StatusCode)

	got, err := tourSvc.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.RatingsAverage)
	assert.Equal(t, 2, got.RatingsQuantity)
	assert.Len(t, got.Reviews, 2)
	require.Len(t, got.Guides, 1)

	q, err := query.New(tours.Schema(), url.Values{"price[lte]": {"400"}, "fields": {"name,price"}}).Apply().Query()
	require.NoError(t, err)
	found, err := tours.Find(ctx, q)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 397.0, found[0].Price)

	plan, err := tourSvc.MonthlyPlan(ctx, 2021)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, 4, plan[0].Month)
	assert.Equal(t, []string{"The Forest Hiker"}, plan[0].Tours)

	stats, err := tourSvc.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "EASY", stats[0].Difficulty)

	near, err := tourSvc.Within(ctx, 100, "51.2,-115.5", "km")
	require.NoError(t, err)
	assert.Len(t, near, 1)
	far, err := tourSvc.Within(ctx, 100, "34.1,-118.1", "km")
	require.NoError(t, err)
	assert.Empty(t, far)

	dist, err := tourSvc.Distances(ctx, "51.178456,-115.570154", "km")
	require.NoError(t, err)
	require.Len(t, dist, 1)
	assert.InDelta(t, 0, dist[0].Distance, 0.01)

	userSvc := service.NewUserService(users, reviewSvc)
	require.NoError(t, userSvc.Delete(ctx, authors[1]))
	got, err = tourSvc.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.RatingsAverage)
	assert.Equal(t, 1, got.RatingsQuantity)
	assert.Len(t, got.Reviews, 1)
}
