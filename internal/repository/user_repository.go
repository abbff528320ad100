package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
)

// UserRepo adds the credential lookups of the auth flow to the generic
// store.  Lookups by email and reset token only see active users.
type UserRepo struct {
	*Store[model.User, *model.User]
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{Store: NewStore[model.User](db, "users", "user")}
}

// FindByEmail fetches an active user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.First(ctx, "email = ? AND active = TRUE", email)
}

// FindByResetToken fetches the active user holding an unexpired reset token
// with the given hash.
func (r *UserRepo) FindByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	return r.First(ctx, "password_reset_token = ? AND password_reset_expires > ? AND active = TRUE", hash, now.UTC())
}

// SetResetToken stores (or clears, when hash is nil) the reset token fields.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, hash *string, exp *time.Time) error {
	return r.UpdateColumns(ctx, id,
		[]string{"password_reset_token", "password_reset_expires"},
		hash, exp)
}

// SetPassword stores a new hash, stamps password_changed_at and clears any
// pending reset token.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, hash string, changedAt time.Time) error {
	return r.UpdateColumns(ctx, id,
		[]string{"password_hash", "password_changed_at", "password_reset_token", "password_reset_expires"},
		hash, changedAt.UTC(), nil, nil)
}

// Deactivate is the self-service soft delete.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	return r.UpdateColumns(ctx, id, []string{"active"}, false)
}

// Summaries returns the public profile of each active user in ids, keyed by
// id.  Unknown ids are left out.
func (r *UserRepo) Summaries(ctx context.Context, ids []uint64) (map[uint64]model.UserSummary, error) {
	out := make(map[uint64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("summaries", "users")()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	stmt := fmt.Sprintf("SELECT id, name, email, role, photo FROM users WHERE id IN (%s) AND active = TRUE",
		placeholders(len(ids)))
	rows, err := r.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("users summaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Role, &s.Photo); err != nil {
			return nil, fmt.Errorf("users summaries scan: %w", err)
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}
