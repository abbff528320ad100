package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
	"github.com/iliyamo/tour-booking/internal/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeReviews is an in-memory review resource that records what the
// handlers hand over.
type fakeReviews struct {
	docs      map[uint64]model.Review
	lastQuery *query.Query
	lastPatch map[string]any
	created   *model.Review
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{docs: map[uint64]model.Review{
		1: {ID: 1, Review: "Great", Rating: 5, Tour: model.NewRef(5), User: model.NewRef(3)},
		2: {ID: 2, Review: "Fine", Rating: 3, Tour: model.NewRef(5), User: model.NewRef(4)},
	}}
}

func (f *fakeReviews) Schema() model.Schema {
	return model.SchemaOf("reviews", "review", &model.Review{})
}

func (f *fakeReviews) List(_ context.Context, b *query.Builder) ([]model.Review, error) {
	q, err := b.Apply().Query()
	if err != nil {
		return nil, err
	}
	f.lastQuery = q
	return []model.Review{f.docs[1], f.docs[2]}, nil
}

func (f *fakeReviews) Get(_ context.Context, id uint64) (*model.Review, error) {
	r, ok := f.docs[id]
	if !ok {
		return nil, service.NotFound(id)
	}
	return &r, nil
}

func (f *fakeReviews) Create(_ context.Context, in *model.Review) (*model.Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.ID = 9
	f.created = in
	return in, nil
}

func (f *fakeReviews) Update(_ context.Context, id uint64, patch map[string]any) (*model.Review, error) {
	f.lastPatch = patch
	r, ok := f.docs[id]
	if !ok {
		return nil, service.NotFound(id)
	}
	if err := model.Merge(&r, patch); err != nil {
		return nil, err
	}
	return &r, nil
}

func (f *fakeReviews) Delete(_ context.Context, id uint64) error {
	if _, ok := f.docs[id]; !ok {
		return service.NotFound(id)
	}
	delete(f.docs, id)
	return nil
}

type staticUser struct{ u *model.User }

func (s staticUser) Protect(context.Context, string) (*model.User, error) { return s.u, nil }

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperr.Handler("production", discard)
	return e
}

func call(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func reviewRoutes(f *fakeReviews) *echo.Echo {
	e := newEcho()
	h := NewReviewHandler(f, 0)
	as := middleware.Protect(staticUser{&model.User{ID: 3, Role: model.RoleUser}})
	e.GET("/reviews", h.GetAll)
	e.GET("/tours/:tourId/reviews", h.GetAll)
	e.POST("/tours/:tourId/reviews", h.CreateOne, as)
	e.POST("/reviews", h.CreateOne, as)
	e.GET("/reviews/:id", h.GetOne)
	e.PATCH("/reviews/:id", h.UpdateOne)
	e.DELETE("/reviews/:id", h.DeleteOne)
	return e
}

func TestGetAllEnvelope(t *testing.T) {
	f := newFakeReviews()
	rec := call(reviewRoutes(f), http.MethodGet, "/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["results"])
	docs := body["data"].(map[string]any)["review"].([]any)
	assert.Len(t, docs, 2)
	assert.Empty(t, f.lastQuery.Conds)
}

func TestGetAllScopesToParent(t *testing.T) {
	f := newFakeReviews()
	rec := call(reviewRoutes(f), http.MethodGet, "/tours/5/reviews?rating[gte]=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tour_id = ?", "rating >= ?"}, f.lastQuery.Conds)
	assert.Equal(t, []any{uint64(5), float64(4)}, f.lastQuery.Args)

	rec = call(reviewRoutes(f), http.MethodGet, "/tours/abc/reviews", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid tourId: abc", decode(t, rec)["message"])
}

func TestGetAllProjectsFields(t *testing.T) {
	rec := call(reviewRoutes(newFakeReviews()), http.MethodGet, "/reviews?fields=rating", "")
	require.Equal(t, http.StatusOK, rec.Code)
	docs := decode(t, rec)["data"].(map[string]any)["review"].([]any)
	assert.Equal(t, map[string]any{"id": float64(1), "rating": float64(5)}, docs[0])
}

func TestGetAllRejectsBadQuery(t *testing.T) {
	rec := call(reviewRoutes(newFakeReviews()), http.MethodGet, "/reviews?sort=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid sort field: nope", decode(t, rec)["message"])
}

func TestGetOne(t *testing.T) {
	e := reviewRoutes(newFakeReviews())

	rec := call(e, http.MethodGet, "/reviews/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode(t, rec)["data"].(map[string]any)["review"].(map[string]any)
	assert.Equal(t, "Great", doc["review"])

	rec = call(e, http.MethodGet, "/reviews/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id: abc", decode(t, rec)["message"])

	rec = call(e, http.MethodGet, "/reviews/77", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No document found with ID: 77", decode(t, rec)["message"])
}

func TestCreateOneFillsTourAndAuthor(t *testing.T) {
	f := newFakeReviews()
	rec := call(reviewRoutes(f), http.MethodPost, "/tours/5/reviews",
		`{"review":"Lovely","rating":4,"user":99,"id":40,"createdAt":"2020-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NotNil(t, f.created)
	assert.Equal(t, uint64(5), f.created.Tour.ID)
	assert.Equal(t, uint64(3), f.created.User.ID)
	assert.True(t, f.created.CreatedAt.IsZero())
	doc := decode(t, rec)["data"].(map[string]any)["review"].(map[string]any)
	assert.Equal(t, float64(9), doc["id"])
}

func TestCreateOneKeepsBodyTour(t *testing.T) {
	f := newFakeReviews()
	rec := call(reviewRoutes(f), http.MethodPost, "/reviews", `{"review":"Lovely","rating":4,"tour":8}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint64(8), f.created.Tour.ID)
}

func TestCreateOneValidationAndBadJSON(t *testing.T) {
	e := reviewRoutes(newFakeReviews())

	rec := call(e, http.MethodPost, "/reviews", `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "Review must belong to a tour.")

	rec = call(e, http.MethodPost, "/reviews", `{"rating":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/reviews", `{"review":"x","rating":"five","tour":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOneDropsProtectedKeys(t *testing.T) {
	f := newFakeReviews()
	rec := call(reviewRoutes(f), http.MethodPatch, "/reviews/1", `{"rating":2,"tour":9,"user":8,"id":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"rating": float64(2)}, f.lastPatch)
}

func TestDeleteOne(t *testing.T) {
	f := newFakeReviews()
	e := reviewRoutes(f)

	rec := call(e, http.MethodDelete, "/reviews/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.NotContains(t, f.docs, uint64(2))

	rec = call(e, http.MethodDelete, "/reviews/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
