package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/observability"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/utils"
)

const resetTokenTTL = 10 * time.Minute

// UserStore is the persistence the auth flow needs.
type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id uint64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error)
	SetResetToken(ctx context.Context, id uint64, hash *string, exp *time.Time) error
	SetPassword(ctx context.Context, id uint64, hash string, changedAt time.Time) error
}

// Mailer delivers account e-mails.
type Mailer interface {
	SendWelcome(ctx context.Context, u *model.User) error
	SendPasswordReset(ctx context.Context, u *model.User, resetURL string) error
}

// Session is a signed-in user with a fresh token.
type Session struct {
	User    *model.User
	Token   string
	Expires time.Time
}

// SignUpInput is the accepted signup payload.
type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Role            string `json:"role"`
	Photo           string `json:"photo"`
}

type AuthService struct {
	Users      UserStore
	Mail       Mailer
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	Logger     *slog.Logger

	now func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserStore, mail Mailer, secret string, ttl time.Duration, cost int, logger *slog.Logger) *AuthService {
	return &AuthService{
		Users: users, Mail: mail,
		Secret: secret, TokenTTL: ttl, BcryptCost: cost,
		Logger: logger,
		now:    time.Now,
	}
}

const (
	errMissingCredentials = "Please provide email and password"
	errBadCredentials     = "Incorrect email or password"
	errNotLoggedIn        = "You are not logged in! Please log in to get access"
	errTokenInvalid       = "Token is invalid or expired"
	errUserGone           = "The user belonging to this token does no longer exist"
	errPasswordChanged    = "User recently changed password! Please log in again"
)

// SignUp creates an account and signs the new user in.  Admin accounts
// cannot be self-registered.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if strings.TrimSpace(in.Role) == model.RoleAdmin {
		return nil, apperr.Forbidden("You do not have permission to perform this action")
	}
	u := &model.User{
		Name:            in.Name,
		Email:           in.Email,
		Role:            strings.TrimSpace(in.Role),
		Photo:           in.Photo,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
		Active:          true,
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(u.Password, s.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u.PasswordHash = hash
	u.Password, u.PasswordConfirm = "", ""

	if err := s.Users.Insert(ctx, u); err != nil {
		return nil, err
	}
	u.CreatedAt = s.now().UTC().Truncate(time.Second)

	if err := s.Mail.SendWelcome(ctx, u); err != nil {
		observability.LogAsyncOperationError(ctx, s.Logger, "welcome_mail", err, slog.Uint64("user_id", u.ID))
	}
	return s.session(u)
}

// LogIn checks credentials.  Unknown email and wrong password produce the
// same error.
func (s *AuthService) LogIn(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.BadRequest(errMissingCredentials)
	}
	u, err := s.Users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u = nil
	case err != nil:
		return nil, err
	}
	// Unknown addresses still pay for a bcrypt comparison.
	hash := s.missingUserHash()
	if u != nil {
		hash = u.PasswordHash
	}
	if !utils.VerifyPassword(hash, password) || u == nil {
		return nil, apperr.Unauthorized(errBadCredentials)
	}
	return s.session(u)
}

func (s *AuthService) missingUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := utils.HashPassword(uuid.NewString(), s.BcryptCost)
		if err != nil {
			s.Logger.Error("hash placeholder password", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// SignToken issues a token for userID.
func (s *AuthService) SignToken(userID uint64) (utils.SessionToken, error) {
	return utils.SignToken(s.Secret, userID, s.TokenTTL, s.now())
}

// Protect resolves a token to its active user.  Tokens issued before the
// last password change are rejected.
func (s *AuthService) Protect(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized(errNotLoggedIn)
	}
	claims, err := utils.ParseToken(s.Secret, token, s.now())
	if err != nil {
		e := apperr.Unauthorized(errTokenInvalid)
		e.Err = err
		return nil, e
	}
	u, err := s.Users.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.Active) {
		return nil, apperr.Unauthorized(errUserGone)
	}
	if err != nil {
		return nil, err
	}
	if u.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, apperr.Unauthorized(errPasswordChanged)
	}
	return u, nil
}

// ForgotPassword stores the hash of a fresh reset token and returns the
// user and the raw token.  Nothing else on the user is validated or saved.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*model.User, string, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperr.NotFound("There is no user with that email address")
	}
	if err != nil {
		return nil, "", err
	}
	rt, err := utils.NewResetToken(resetTokenTTL, s.now())
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	if err := s.Users.SetResetToken(ctx, u.ID, &rt.Hash, &rt.Exp); err != nil {
		return nil, "", err
	}
	u.PasswordResetToken, u.PasswordResetExpires = &rt.Hash, &rt.Exp
	return u, rt.Raw, nil
}

// SendPasswordResetEmail mails the reset link.  If the mail cannot be
// queued the token is withdrawn so it cannot be used.
func (s *AuthService) SendPasswordResetEmail(ctx context.Context, u *model.User, resetURL string) error {
	err := s.Mail.SendPasswordReset(ctx, u, resetURL)
	if err == nil {
		return nil
	}
	if rbErr := s.Users.SetResetToken(ctx, u.ID, nil, nil); rbErr != nil {
		observability.LogAsyncOperationError(ctx, s.Logger, "reset_token_rollback", rbErr, slog.Uint64("user_id", u.ID))
	}
	u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	return apperr.ServerError("There was an error sending the email. Try again later!", err)
}

// ResetPassword sets a new password for the holder of a valid reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) (*Session, error) {
	u, err := s.Users.FindByResetToken(ctx, utils.HashToken(token), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.BadRequest("Token is invalid or has expired")
	}
	if err != nil {
		return nil, err
	}
	if err := s.setPassword(ctx, u, password, confirm); err != nil {
		return nil, err
	}
	return s.session(u)
}

// UpdatePassword changes the password of a signed-in user after checking
// the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint64, current, password, confirm string) (*Session, error) {
	u, err := s.Users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized(errUserGone)
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return nil, apperr.Unauthorized("Your current password is wrong")
	}
	if err := s.setPassword(ctx, u, password, confirm); err != nil {
		return nil, err
	}
	return s.session(u)
}

// setPassword validates, hashes and stores a new password.  The change is
// stamped one second in the past so a token signed right after it is
// still accepted.
func (s *AuthService) setPassword(ctx context.Context, u *model.User, password, confirm string) error {
	oldHash := u.PasswordHash
	u.Password, u.PasswordConfirm = password, confirm
	if password == "" {
		u.PasswordHash = ""
	}
	err := u.Validate()
	u.Password, u.PasswordConfirm, u.PasswordHash = "", "", oldHash
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	changedAt := s.now().UTC().Add(-time.Second)
	if err := s.Users.SetPassword(ctx, u.ID, hash, changedAt); err != nil {
		return err
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	return nil
}

func (s *AuthService) session(u *model.User) (*Session, error) {
	tok, err := s.SignToken(u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{User: u, Token: tok.Token, Expires: tok.Exp}, nil
}
