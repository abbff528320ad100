package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/apperr"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"

	DefaultPhoto      = "default.jpg"
	MinPasswordLength = 8
)

var roles = map[string]bool{RoleUser: true, RoleGuide: true, RoleLeadGuide: true, RoleAdmin: true}

// User mirrors the `users` table.  Password and PasswordConfirm only carry
// plain input between the handler and the auth service; they are never
// stored or serialized.
type User struct {
	ID                   uint64     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Role                 string     `json:"role"`
	Photo                string     `json:"photo,omitempty"`
	PasswordHash         string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`

	Password        string `json:"-"`
	PasswordConfirm string `json:"-"`
}

func (u *User) Identity() uint64      { return u.ID }
func (u *User) SetIdentity(id uint64) { u.ID = id }

func (u *User) Fields() []Field {
	return []Field{
		{Name: "id", Column: "id", Kind: KindNumber, Ptr: &u.ID, ReadOnly: true},
		{Name: "name", Column: "name", Kind: KindString, Ptr: &u.Name},
		{Name: "email", Column: "email", Kind: KindString, Ptr: &u.Email},
		{Name: "role", Column: "role", Kind: KindString, Ptr: &u.Role},
		{Name: "photo", Column: "photo", Kind: KindString, Ptr: &u.Photo},
		{Name: "passwordHash", Column: "password_hash", Ptr: &u.PasswordHash, Internal: true},
		{Name: "passwordChangedAt", Column: "password_changed_at", Kind: KindTime, Ptr: &u.PasswordChangedAt, Internal: true},
		{Name: "passwordResetToken", Column: "password_reset_token", Ptr: &u.PasswordResetToken, Internal: true},
		{Name: "passwordResetExpires", Column: "password_reset_expires", Kind: KindTime, Ptr: &u.PasswordResetExpires, Internal: true},
		{Name: "active", Column: "active", Kind: KindBool, Ptr: &u.Active, Internal: true},
		{Name: "createdAt", Column: "created_at", Kind: KindTime, Ptr: &u.CreatedAt, ReadOnly: true},
	}
}

// Normalize trims input and fills defaults before validation.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
}

// Validate checks the profile fields and, when a plain password is being
// set, its length and confirmation.
func (u *User) Validate() error {
	v := &apperr.ValidationError{}
	if u.Name == "" {
		v.Add("name", "Please tell us your name")
	}
	if u.Email == "" {
		v.Add("email", "Please provide your email")
	} else if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		v.Add("email", "Please provide a valid email")
	}
	if !roles[u.Role] {
		v.Add("role", "Role is either: user, guide, lead-guide, admin")
	}
	if u.PasswordHash == "" && u.Password == "" {
		v.Add("password", "Please provide a password")
	}
	if u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			v.Add("password", "Password must have at least 8 characters")
		}
		if u.PasswordConfirm == "" {
			v.Add("passwordConfirm", "Please confirm your password")
		} else if u.PasswordConfirm != u.Password {
			v.Add("passwordConfirm", "Passwords are not the same!")
		}
	}
	return v.Err()
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat.  Both sides are compared at one-second granularity.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}

// Summary is the public part of a user embedded into other documents.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Photo: u.Photo}
}

// UserSummary is what populated references expose.
type UserSummary struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Photo string `json:"photo,omitempty"`
}
