// Package service holds the domain orchestration between handlers and
// repositories: lifecycle steps such as slug generation, password hashing,
// population of references and rating recomputation are called here
// explicitly.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/geo"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// Store is the generic table gateway every service builds on.
type Store[T any, PT interface {
	*T
	model.Entity
}] interface {
	Schema() model.Schema
	Find(ctx context.Context, q *query.Query) ([]T, error)
	Get(ctx context.Context, id uint64) (*T, error)
	Insert(ctx context.Context, e PT) error
	Update(ctx context.Context, e PT) error
	Delete(ctx context.Context, id uint64) error
}

type TourStore interface {
	Store[model.Tour, *model.Tour]
	Stats(ctx context.Context) ([]model.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error)
	Distances(ctx context.Context, lat, lng float64, u geo.Unit) ([]model.TourDistance, error)
	SetRatings(ctx context.Context, id uint64, s model.RatingSummary) error
}

type ReviewStore interface {
	Store[model.Review, *model.Review]
	RatingSummary(ctx context.Context, tourID uint64) (model.RatingSummary, error)
	ForTour(ctx context.Context, tourID uint64) ([]model.Review, error)
	ToursReviewedBy(ctx context.Context, userID uint64) ([]uint64, error)
}

type AccountStore interface {
	Store[model.User, *model.User]
	Deactivate(ctx context.Context, id uint64) error
}

// UserDirectory resolves user references to public summaries.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []uint64) (map[uint64]model.UserSummary, error)
}

// NotFound is the 404 every by-id operation reports.
func NotFound(id uint64) error {
	return apperr.NotFound(fmt.Sprintf("No document found with ID: %d", id))
}

func notFoundAs(err error, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return NotFound(id)
	}
	return err
}

// selected reports whether name survives the builder's projection.
func selected(b *query.Builder, name string) bool {
	fields := b.Fields()
	if fields == nil {
		return true
	}
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
