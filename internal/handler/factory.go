package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/query"
)

// Resource is what a domain service offers the generic handlers.
type Resource[T any] interface {
	Schema() model.Schema
	List(ctx context.Context, b *query.Builder) ([]T, error)
	Get(ctx context.Context, id uint64) (*T, error)
	Create(ctx context.Context, in *T) (*T, error)
	Update(ctx context.Context, id uint64, patch map[string]any) (*T, error)
	Delete(ctx context.Context, id uint64) error
}

// Parent scopes a nested collection such as /tours/:tourId/reviews.
type Parent struct {
	Param  string // route parameter, e.g. "tourId"
	Column string // foreign key column, e.g. "tour_id"
}

// Factory builds the five CRUD handlers for one resource.
type Factory[T any] struct {
	Resource Resource[T]
	MaxLimit int
	Parent   *Parent

	// BeforeCreate may fill payload keys from the route or the session.
	BeforeCreate func(c echo.Context, payload map[string]any) error
}

func NewFactory[T any](r Resource[T], maxLimit int) *Factory[T] {
	return &Factory[T]{Resource: r, MaxLimit: maxLimit}
}

func (f *Factory[T]) name() string { return f.Resource.Schema().Name }

func (f *Factory[T]) CreateOne(c echo.Context) error {
	payload, err := decodePayload(c)
	if err != nil {
		return err
	}
	f.Resource.Schema().CleanPayload(payload, false)
	if f.BeforeCreate != nil {
		if err := f.BeforeCreate(c, payload); err != nil {
			return err
		}
	}
	in := new(T)
	if err := model.Merge(in, payload); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	doc, err := f.Resource.Create(ctx, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{f.name(): doc})
}

func (f *Factory[T]) GetAll(c echo.Context) error {
	return f.list(c, c.QueryParams())
}

// list runs the query pipeline with explicit params so aliases can supply
// their own.
func (f *Factory[T]) list(c echo.Context, params url.Values) error {
	b := query.New(f.Resource.Schema(), params).MaxLimit(f.MaxLimit)
	if f.Parent != nil && c.Param(f.Parent.Param) != "" {
		id, err := idParam(c, f.Parent.Param, f.Parent.Param)
		if err != nil {
			return err
		}
		b.Where(f.Parent.Column+" = ?", id)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	docs, err := f.Resource.List(ctx, b)
	if err != nil {
		return err
	}
	out, err := project(docs, b.Fields())
	if err != nil {
		return err
	}
	return many(c, f.name(), out, len(docs))
}

func (f *Factory[T]) GetOne(c echo.Context) error {
	id, err := idParam(c, "id", "id")
	if err != nil {
		return err
	}
	return f.getByID(c, id)
}

func (f *Factory[T]) getByID(c echo.Context, id uint64) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	doc, err := f.Resource.Get(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{f.name(): doc})
}

// UpdateOne merges the payload into the stored document.  Read-only and
// immutable keys are dropped.
func (f *Factory[T]) UpdateOne(c echo.Context) error {
	id, err := idParam(c, "id", "id")
	if err != nil {
		return err
	}
	payload, err := decodePayload(c)
	if err != nil {
		return err
	}
	f.Resource.Schema().CleanPayload(payload, true)

	ctx, cancel := reqCtx(c)
	defer cancel()
	doc, err := f.Resource.Update(ctx, id, payload)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{f.name(): doc})
}

func (f *Factory[T]) DeleteOne(c echo.Context) error {
	id, err := idParam(c, "id", "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := f.Resource.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// project trims every document to the selected fields.
func project[T any](docs []T, fields []string) ([]any, error) {
	out := make([]any, len(docs))
	for i := range docs {
		v, err := model.Project(docs[i], fields)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
