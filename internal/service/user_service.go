package service

import (
	"context"
	"net/http"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
)

// selfEditable are the only keys /updateMe accepts.
var selfEditable = []string{"name", "email", "photo"}

// RatingKeeper recomputes tour ratings once a user's reviews are gone.
type RatingKeeper interface {
	ToursReviewedBy(ctx context.Context, userID uint64) ([]uint64, error)
	Refresh(ctx context.Context, tourIDs ...uint64)
}

// UserService covers profile self-service and admin user management.
// Deactivated users are invisible to both.
type UserService struct {
	Users   AccountStore
	Ratings RatingKeeper
}

func NewUserService(users AccountStore, ratings RatingKeeper) *UserService {
	return &UserService{Users: users, Ratings: ratings}
}

func (s *UserService) Schema() model.Schema { return s.Users.Schema() }

func (s *UserService) List(ctx context.Context, b *query.Builder) ([]model.User, error) {
	q, err := b.Where("active = TRUE").Apply().Query()
	if err != nil {
		return nil, err
	}
	return s.Users.Find(ctx, q)
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.Users.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	if !u.Active {
		return nil, NotFound(id)
	}
	return u, nil
}

// Create is not offered to admins; accounts come from /signup.
func (s *UserService) Create(context.Context, *model.User) (*model.User, error) {
	return nil, apperr.New(http.StatusInternalServerError, "This route is not yet defined. Please use /signup instead")
}

// Update applies an admin edit.  Passwords cannot be changed this way.
func (s *UserService) Update(ctx context.Context, id uint64, patch map[string]any) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, u, patch)
}

// Delete removes the row for good, unlike DeleteMe.  The user's reviews go
// with it, so the tours they rated are recomputed afterwards.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	var rated []uint64
	if s.Ratings != nil {
		var err error
		if rated, err = s.Ratings.ToursReviewedBy(ctx, id); err != nil {
			return err
		}
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return notFoundAs(err, id)
	}
	if len(rated) > 0 {
		s.Ratings.Refresh(ctx, rated...)
	}
	return nil
}

// UpdateMe lets a user edit their own name, email and photo.
func (s *UserService) UpdateMe(ctx context.Context, u *model.User, payload map[string]any) (*model.User, error) {
	if _, ok := payload["password"]; ok {
		return nil, apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	if _, ok := payload["passwordConfirm"]; ok {
		return nil, apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	patch := make(map[string]any, len(selfEditable))
	for _, k := range selfEditable {
		if v, ok := payload[k]; ok {
			patch[k] = v
		}
	}
	return s.save(ctx, u, patch)
}

// DeleteMe deactivates the account; the row stays.
func (s *UserService) DeleteMe(ctx context.Context, id uint64) error {
	return s.Users.Deactivate(ctx, id)
}

func (s *UserService) save(ctx context.Context, u *model.User, patch map[string]any) (*model.User, error) {
	id := u.ID
	if err := model.Merge(u, patch); err != nil {
		return nil, err
	}
	u.ID = id
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
