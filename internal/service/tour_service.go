package service

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/geo"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// notSecret hides secret tours from public reads.  Admin writes and the
// aggregates still see them.
const notSecret = "secret_tour = FALSE"

type TourService struct {
	Tours   TourStore
	Reviews ReviewStore
	Users   UserDirectory
	Logger  *slog.Logger
}

func NewTourService(tours TourStore, reviews ReviewStore, users UserDirectory, logger *slog.Logger) *TourService {
	return &TourService{Tours: tours, Reviews: reviews, Users: users, Logger: logger}
}

func (s *TourService) Schema() model.Schema { return s.Tours.Schema() }

// List runs the query-string pipeline over public tours and populates
// guides.
func (s *TourService) List(ctx context.Context, b *query.Builder) ([]model.Tour, error) {
	q, err := b.Where(notSecret).Apply().Query()
	if err != nil {
		return nil, err
	}
	tours, err := s.Tours.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if selected(b, "guides") {
		if err := s.populateGuides(ctx, tours); err != nil {
			return nil, err
		}
	}
	return tours, nil
}

// Get returns a public tour with its guides and reviews.
func (s *TourService) Get(ctx context.Context, id uint64) (*model.Tour, error) {
	t, err := s.Tours.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	if t.SecretTour {
		return nil, NotFound(id)
	}
	return s.populate(ctx, t)
}

func (s *TourService) Create(ctx context.Context, in *model.Tour) (*model.Tour, error) {
	in.ID = 0
	in.RatingsAverage, in.RatingsQuantity = model.DefaultRatingsAverage, 0
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.Tours.Insert(ctx, in); err != nil {
		return nil, err
	}
	return s.load(ctx, in.ID)
}

func (s *TourService) Update(ctx context.Context, id uint64, patch map[string]any) (*model.Tour, error) {
	t, err := s.Tours.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	if err := model.Merge(t, patch); err != nil {
		return nil, err
	}
	t.ID = id
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.Tours.Update(ctx, t); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *TourService) Delete(ctx context.Context, id uint64) error {
	return notFoundAs(s.Tours.Delete(ctx, id), id)
}

// Stats aggregates tours rated 4.5 and above by difficulty.
func (s *TourService) Stats(ctx context.Context) ([]model.TourStats, error) {
	return s.Tours.Stats(ctx)
}

// MonthlyPlan counts tour starts per month of year, busiest month first.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	if year < 1 || year > 9999 {
		return nil, &apperr.CastError{Path: "year", Value: strconv.Itoa(year)}
	}
	return s.Tours.MonthlyPlan(ctx, year)
}

// Within lists public tours starting within distance (in unit) of latlng.
func (s *TourService) Within(ctx context.Context, distance float64, latlng, unit string) ([]model.Tour, error) {
	lat, lng, err := geo.ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil, &apperr.CastError{Path: "distance", Value: strconv.FormatFloat(distance, 'f', -1, 64)}
	}
	radius := geo.AngularRadius(distance, geo.ParseUnit(unit))
	b := query.New(s.Schema(), nil).
		Where(notSecret).
		Where(repository.WithinCondition, lng, lat, radius)
	q, err := b.Filter().Sort().LimitFields().Query()
	if err != nil {
		return nil, err
	}
	tours, err := s.Tours.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.populateGuides(ctx, tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// Distances returns the distance from latlng to every tour, nearest first.
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]model.TourDistance, error) {
	lat, lng, err := geo.ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	return s.Tours.Distances(ctx, lat, lng, geo.ParseUnit(unit))
}

// load reads a tour regardless of secrecy, for responses to admin writes.
func (s *TourService) load(ctx context.Context, id uint64) (*model.Tour, error) {
	t, err := s.Tours.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	return s.populate(ctx, t)
}

func (s *TourService) populate(ctx context.Context, t *model.Tour) (*model.Tour, error) {
	one := []model.Tour{*t}
	if err := s.populateGuides(ctx, one); err != nil {
		return nil, err
	}
	*t = one[0]

	reviews, err := s.Reviews.ForTour(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if err := populateReviewUsers(ctx, s.Users, reviews); err != nil {
		return nil, err
	}
	t.Reviews = reviews
	return t, nil
}

func (s *TourService) populateGuides(ctx context.Context, tours []model.Tour) error {
	var ids []uint64
	for _, t := range tours {
		ids = append(ids, t.Guides.IDs()...)
	}
	if len(ids) == 0 {
		return nil
	}
	users, err := s.Users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range tours {
		guides := make(model.Refs, 0, len(tours[i].Guides))
		for _, g := range tours[i].Guides {
			if u, ok := users[g.ID]; ok {
				guides = append(guides, model.Ref{ID: g.ID, Doc: u})
			}
		}
		tours[i].Guides = guides
	}
	return nil
}
