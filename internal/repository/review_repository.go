package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
)

// ReviewRepo adds the rating aggregate and per-tour listing to the generic
// store.
type ReviewRepo struct {
	*Store[model.Review, *model.Review]
}

func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{Store: NewStore[model.Review](db, "reviews", "review")}
}

// RatingSummary aggregates every review of a tour.
func (r *ReviewRepo) RatingSummary(ctx context.Context, tourID uint64) (model.RatingSummary, error) {
	defer observability.TrackQuery("rating_summary", "reviews")()
	var s model.RatingSummary
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE tour_id = ?",
		tourID).Scan(&s.Quantity, &s.Average)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("reviews rating summary: %w", err)
	}
	return s, nil
}

// ForTour lists the reviews of one tour, newest first.
func (r *ReviewRepo) ForTour(ctx context.Context, tourID uint64) ([]model.Review, error) {
	defer observability.TrackQuery("for_tour", "reviews")()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, review, rating, created_at, tour_id, user_id FROM reviews WHERE tour_id = ? ORDER BY created_at DESC",
		tourID)
	if err != nil {
		return nil, fmt.Errorf("reviews for tour: %w", err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.Review, &rv.Rating, &rv.CreatedAt, &rv.Tour, &rv.User); err != nil {
			return nil, fmt.Errorf("reviews for tour scan: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// ToursReviewedBy lists the tours userID has reviewed.
func (r *ReviewRepo) ToursReviewedBy(ctx context.Context, userID uint64) ([]uint64, error) {
	defer observability.TrackQuery("tours_reviewed_by", "reviews")()
	rows, err := r.DB.QueryContext(ctx, "SELECT DISTINCT tour_id FROM reviews WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("reviews by user: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("reviews by user scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
