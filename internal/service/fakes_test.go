package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/tour-booking/internal/geo"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// memStore is an in-memory Store.  Find ignores the query apart from
// recording it.
type memStore[T any, PT interface {
	*T
	model.Entity
}] struct {
	schema    model.Schema
	rows      map[uint64]T
	next      uint64
	lastQuery *query.Query
	unique    func(a, b PT) bool
}

func newMemStore[T any, PT interface {
	*T
	model.Entity
}](table, name string) *memStore[T, PT] {
	var zero T
	return &memStore[T, PT]{schema: model.SchemaOf(table, name, PT(&zero)), rows: map[uint64]T{}}
}

func (m *memStore[T, PT]) Schema() model.Schema { return m.schema }

func (m *memStore[T, PT]) Find(_ context.Context, q *query.Query) ([]T, error) {
	m.lastQuery = q
	ids := make([]uint64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []T{}
	for _, id := range ids {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *memStore[T, PT]) Get(_ context.Context, id uint64) (*T, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memStore[T, PT]) Insert(_ context.Context, e PT) error {
	if m.unique != nil {
		for _, row := range m.rows {
			r := row
			if m.unique(PT(&r), e) {
				return fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uq'"})
			}
		}
	}
	m.next++
	e.SetIdentity(m.next)
	m.rows[m.next] = *(*T)(e)
	return nil
}

func (m *memStore[T, PT]) Update(_ context.Context, e PT) error {
	if _, ok := m.rows[e.Identity()]; !ok {
		return repository.ErrNotFound
	}
	m.rows[e.Identity()] = *(*T)(e)
	return nil
}

func (m *memStore[T, PT]) Delete(_ context.Context, id uint64) error {
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type fakeTours struct {
	*memStore[model.Tour, *model.Tour]
	distancesArgs []any
}

func newFakeTours() *fakeTours {
	return &fakeTours{memStore: newMemStore[model.Tour]("tours", "tour")}
}

func (f *fakeTours) Stats(context.Context) ([]model.TourStats, error) {
	return []model.TourStats{{Difficulty: "EASY", NumTours: len(f.rows)}}, nil
}

func (f *fakeTours) MonthlyPlan(_ context.Context, year int) ([]model.MonthlyPlan, error) {
	return []model.MonthlyPlan{{Month: 7, NumTours: 1, Tours: []string{fmt.Sprint(year)}}}, nil
}

func (f *fakeTours) Distances(_ context.Context, lat, lng float64, u geo.Unit) ([]model.TourDistance, error) {
	f.distancesArgs = []any{lat, lng, u}
	return []model.TourDistance{}, nil
}

func (f *fakeTours) SetRatings(_ context.Context, id uint64, s model.RatingSummary) error {
	t, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.RatingsQuantity = s.Quantity
	t.RatingsAverage = model.RoundRating(s.Average)
	f.rows[id] = t
	return nil
}

type fakeReviews struct {
	*memStore[model.Review, *model.Review]
}

func newFakeReviews() *fakeReviews {
	m := newMemStore[model.Review]("reviews", "review")
	m.unique = func(a, b *model.Review) bool { return a.Tour.ID == b.Tour.ID && a.User.ID == b.User.ID }
	return &fakeReviews{memStore: m}
}

func (f *fakeReviews) RatingSummary(_ context.Context, tourID uint64) (model.RatingSummary, error) {
	var s model.RatingSummary
	total := 0
	for _, r := range f.rows {
		if r.Tour.ID == tourID {
			s.Quantity++
			total += r.Rating
		}
	}
	if s.Quantity > 0 {
		s.Average = float64(total) / float64(s.Quantity)
	}
	return s, nil
}

func (f *fakeReviews) ForTour(ctx context.Context, tourID uint64) ([]model.Review, error) {
	all, _ := f.Find(ctx, nil)
	out := []model.Review{}
	for _, r := range all {
		if r.Tour.ID == tourID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviews) ToursReviewedBy(_ context.Context, userID uint64) ([]uint64, error) {
	seen := map[uint64]bool{}
	var out []uint64
	for _, r := range f.rows {
		if r.User.ID == userID && !seen[r.Tour.ID] {
			seen[r.Tour.ID] = true
			out = append(out, r.Tour.ID)
		}
	}
	return out, nil
}

// dropUser removes userID's reviews the way the reviews.user_id foreign key
// does.
func (f *fakeReviews) dropUser(userID uint64) {
	for id, r := range f.rows {
		if r.User.ID == userID {
			delete(f.rows, id)
		}
	}
}

// fakeUsers serves both the auth flow and the user directory.
type fakeUsers struct {
	*memStore[model.User, *model.User]
	onDelete func(id uint64)
}

func newFakeUsers() *fakeUsers {
	m := newMemStore[model.User]("users", "user")
	m.unique = func(a, b *model.User) bool { return a.Email == b.Email }
	return &fakeUsers{memStore: m}
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.rows {
		if u.Email == email && u.Active {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) FindByResetToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	for _, u := range f.rows {
		if u.Active && u.PasswordResetToken != nil && *u.PasswordResetToken == hash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) SetResetToken(_ context.Context, id uint64, hash *string, exp *time.Time) error {
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetToken, u.PasswordResetExpires = hash, exp
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id uint64, hash string, changedAt time.Time) error {
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash, u.PasswordChangedAt = hash, &changedAt
	u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uint64) error {
	if err := f.memStore.Delete(ctx, id); err != nil {
		return err
	}
	if f.onDelete != nil {
		f.onDelete(id)
	}
	return nil
}

func (f *fakeUsers) Deactivate(_ context.Context, id uint64) error {
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = false
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) Summaries(_ context.Context, ids []uint64) (map[uint64]model.UserSummary, error) {
	out := map[uint64]model.UserSummary{}
	for _, id := range ids {
		if u, ok := f.rows[id]; ok && u.Active {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

type fakeMailer struct {
	resets   []string
	welcomes []string
	fail     error
}

func (f *fakeMailer) SendWelcome(_ context.Context, u *model.User) error {
	f.welcomes = append(f.welcomes, u.Email)
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, u *model.User, url string) error {
	if f.fail != nil {
		return f.fail
	}
	f.resets = append(f.resets, url)
	return nil
}

var errBroker = errors.New("broker down")
