package service

import (
	"context"
	"log/slog"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
	"github.com/iliyamo/tour-booking/internal/query"
)

// ReviewService keeps every tour's rating summary in step with its
// reviews.  The recompute runs after the write in a separate statement, so
// two concurrent writes can leave a stale summary until the next write on
// the same tour.
type ReviewService struct {
	Reviews ReviewStore
	Tours   TourStore
	Users   UserDirectory
	Logger  *slog.Logger
}

func NewReviewService(reviews ReviewStore, tours TourStore, users UserDirectory, logger *slog.Logger) *ReviewService {
	return &ReviewService{Reviews: reviews, Tours: tours, Users: users, Logger: logger}
}

func (s *ReviewService) Schema() model.Schema { return s.Reviews.Schema() }

func (s *ReviewService) List(ctx context.Context, b *query.Builder) ([]model.Review, error) {
	q, err := b.Apply().Query()
	if err != nil {
		return nil, err
	}
	reviews, err := s.Reviews.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if selected(b, "user") {
		if err := populateReviewUsers(ctx, s.Users, reviews); err != nil {
			return nil, err
		}
	}
	return reviews, nil
}

func (s *ReviewService) Get(ctx context.Context, id uint64) (*model.Review, error) {
	r, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	one := []model.Review{*r}
	if err := populateReviewUsers(ctx, s.Users, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Create stores a review and refreshes its tour's ratings.  A second review
// of the same tour by the same user fails on the unique key.
func (s *ReviewService) Create(ctx context.Context, in *model.Review) (*model.Review, error) {
	in.ID = 0
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.Reviews.Insert(ctx, in); err != nil {
		return nil, err
	}
	s.refresh(ctx, in.Tour.ID)
	return s.Get(ctx, in.ID)
}

func (s *ReviewService) Update(ctx context.Context, id uint64, patch map[string]any) (*model.Review, error) {
	r, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	tour, user := r.Tour, r.User
	if err := model.Merge(r, patch); err != nil {
		return nil, err
	}
	r.ID, r.Tour, r.User = id, tour, user
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.Reviews.Update(ctx, r); err != nil {
		return nil, err
	}
	s.refresh(ctx, r.Tour.ID)
	return s.Get(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, id uint64) error {
	r, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return notFoundAs(err, id)
	}
	if err := s.Reviews.Delete(ctx, id); err != nil {
		return notFoundAs(err, id)
	}
	s.refresh(ctx, r.Tour.ID)
	return nil
}

// CalcAverageRatings recomputes a tour's ratings from all of its reviews.
// Without reviews the tour falls back to 0 ratings averaging 4.5.
func (s *ReviewService) CalcAverageRatings(ctx context.Context, tourID uint64) error {
	sum, err := s.Reviews.RatingSummary(ctx, tourID)
	if err != nil {
		return err
	}
	if sum.Quantity == 0 {
		sum.Average = model.DefaultRatingsAverage
	}
	return s.Tours.SetRatings(ctx, tourID, sum)
}

// ToursReviewedBy lists the tours whose ratings depend on userID's reviews.
func (s *ReviewService) ToursReviewedBy(ctx context.Context, userID uint64) ([]uint64, error) {
	return s.Reviews.ToursReviewedBy(ctx, userID)
}

// Refresh recomputes the ratings of each tour, logging failures.
func (s *ReviewService) Refresh(ctx context.Context, tourIDs ...uint64) {
	for _, id := range tourIDs {
		s.refresh(ctx, id)
	}
}

// refresh runs CalcAverageRatings after a review write.  The write itself
// has succeeded, so a failure is logged rather than returned.
func (s *ReviewService) refresh(ctx context.Context, tourID uint64) {
	if err := s.CalcAverageRatings(ctx, tourID); err != nil {
		observability.LogAsyncOperationError(ctx, s.Logger, "calc_average_ratings", err, slog.Uint64("tour_id", tourID))
	}
}

// populateReviewUsers embeds the author's name and photo.
func populateReviewUsers(ctx context.Context, users UserDirectory, reviews []model.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(reviews))
	for _, r := range reviews {
		if r.User.ID != 0 {
			ids = append(ids, r.User.ID)
		}
	}
	found, err := users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range reviews {
		if u, ok := found[reviews[i].User.ID]; ok {
			reviews[i].User.Doc = model.UserSummary{ID: u.ID, Name: u.Name, Photo: u.Photo}
		}
	}
	return nil
}
