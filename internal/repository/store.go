package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
	"github.com/iliyamo/tour-booking/internal/query"
)

// Store is the generic table gateway shared by every entity.  PT is the
// pointer type carrying the model.Entity methods.
type Store[T any, PT interface {
	*T
	model.Entity
}] struct {
	DB     *sql.DB
	schema model.Schema
}

func NewStore[T any, PT interface {
	*T
	model.Entity
}](db *sql.DB, table, name string) *Store[T, PT] {
	var zero T
	return &Store[T, PT]{DB: db, schema: model.SchemaOf(table, name, PT(&zero))}
}

func (s *Store[T, PT]) Schema() model.Schema { return s.schema }

// Find runs a builder query.  Only the projected columns are filled in.
func (s *Store[T, PT]) Find(ctx context.Context, q *query.Query) ([]T, error) {
	defer observability.TrackQuery("find", s.schema.Table)()
	stmt, args := q.SQL()
	rows, err := s.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s find: %w", s.schema.Table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var t T
		dest, err := scanTargets(PT(&t), q.Columns)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s scan: %w", s.schema.Table, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", s.schema.Table, err)
	}
	return out, nil
}

// Get loads every column of one row, internal ones included.
func (s *Store[T, PT]) Get(ctx context.Context, id uint64) (*T, error) {
	return s.First(ctx, "id = ?", id)
}

// First loads the first row matching where.
func (s *Store[T, PT]) First(ctx context.Context, where string, args ...any) (*T, error) {
	defer observability.TrackQuery("get", s.schema.Table)()
	q := &query.Query{
		Table:   s.schema.Table,
		Columns: s.schema.Columns(),
		Conds:   []string{where},
		Args:    args,
		Limit:   1,
	}
	stmt, qargs := q.SQL()

	var t T
	dest, err := scanTargets(PT(&t), q.Columns)
	if err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, stmt, qargs...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s get: %w", s.schema.Table, err)
	}
	return &t, nil
}

// Insert writes e and sets its id.  id and created_at come from the
// database.
func (s *Store[T, PT]) Insert(ctx context.Context, e PT) error {
	defer observability.TrackQuery("insert", s.schema.Table)()
	cols, vals := writable(e, false)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.schema.Table, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := s.DB.ExecContext(ctx, stmt, vals...)
	if err != nil {
		return fmt.Errorf("%s insert: %w", s.schema.Table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s insert id: %w", s.schema.Table, err)
	}
	e.SetIdentity(uint64(id))
	return nil
}

// Update rewrites every writable column of e except aggregates, which have
// their own writers.
func (s *Store[T, PT]) Update(ctx context.Context, e PT) error {
	defer observability.TrackQuery("update", s.schema.Table)()
	cols, vals := writable(e, true)
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = ?"
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", s.schema.Table, strings.Join(set, ", "))
	if _, err := s.DB.ExecContext(ctx, stmt, append(vals, e.Identity())...); err != nil {
		return fmt.Errorf("%s update: %w", s.schema.Table, err)
	}
	return nil
}

// UpdateColumns sets the named columns of one row.  It skips validation and
// is used for partial saves such as reset tokens.
func (s *Store[T, PT]) UpdateColumns(ctx context.Context, id uint64, cols []string, vals ...any) error {
	defer observability.TrackQuery("update", s.schema.Table)()
	if len(cols) != len(vals) {
		return fmt.Errorf("%s update: %d columns for %d values", s.schema.Table, len(cols), len(vals))
	}
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = ?"
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", s.schema.Table, strings.Join(set, ", "))
	if _, err := s.DB.ExecContext(ctx, stmt, append(vals, id)...); err != nil {
		return fmt.Errorf("%s update: %w", s.schema.Table, err)
	}
	return nil
}

// Delete removes one row, reporting ErrNotFound when nothing matched.
func (s *Store[T, PT]) Delete(ctx context.Context, id uint64) error {
	defer observability.TrackQuery("delete", s.schema.Table)()
	res, err := s.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.schema.Table), id)
	if err != nil {
		return fmt.Errorf("%s delete: %w", s.schema.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s delete: %w", s.schema.Table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTargets(e model.Entity, cols []string) ([]any, error) {
	byCol := map[string]any{}
	for _, f := range e.Fields() {
		byCol[f.Column] = f.Ptr
	}
	dest := make([]any, len(cols))
	for i, c := range cols {
		p, ok := byCol[c]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		dest[i] = p
	}
	return dest, nil
}

func writable(e model.Entity, update bool) ([]string, []any) {
	var cols []string
	var vals []any
	for _, f := range e.Fields() {
		if f.Column == "id" || f.Column == "created_at" || (update && f.Aggregate) {
			continue
		}
		cols = append(cols, f.Column)
		vals = append(vals, f.Ptr)
	}
	return cols, vals
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
