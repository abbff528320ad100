package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/service"
)

// Authenticator is the account flow behind the auth endpoints.
type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*service.Session, error)
	LogIn(ctx context.Context, email, password string) (*service.Session, error)
	ForgotPassword(ctx context.Context, email string) (*model.User, string, error)
	SendPasswordResetEmail(ctx context.Context, u *model.User, resetURL string) error
	ResetPassword(ctx context.Context, token, password, confirm string) (*service.Session, error)
	UpdatePassword(ctx context.Context, userID uint64, current, password, confirm string) (*service.Session, error)
}

// AuthHandler bundles the session endpoints.  Every successful sign-in
// sets the jwt cookie and returns the token in the body.
type AuthHandler struct {
	Auth       Authenticator
	CookieTTL  time.Duration
	Production bool
}

func NewAuthHandler(auth Authenticator, cookieTTL time.Duration, production bool) *AuthHandler {
	return &AuthHandler{Auth: auth, CookieTTL: cookieTTL, Production: production}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotReq struct {
	Email string `json:"email"`
}

type resetReq struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type updatePasswordReq struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	var req service.SignUpInput
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Auth.SignUp(ctx, req)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusCreated, s)
}

func (h *AuthHandler) LogIn(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Auth.LogIn(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

// LogOut overwrites the cookie with a short-lived placeholder.
func (h *AuthHandler) LogOut(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    middleware.LoggedOutValue,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, token, err := h.Auth.ForgotPassword(ctx, req.Email)
	if err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/%s", c.Scheme(), c.Request().Host, token)
	if err := h.Auth.SendPasswordResetEmail(ctx, u, resetURL); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Token sent to email!"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Auth.ResetPassword(ctx, c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

func (h *AuthHandler) UpdateMyPassword(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return apperr.Unauthorized("You are not logged in! Please log in to get access")
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Auth.UpdatePassword(ctx, u.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, s)
}

func (h *AuthHandler) sendSession(c echo.Context, code int, s *service.Session) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  time.Now().Add(h.CookieTTL),
		HttpOnly: true,
		Secure:   h.Production,
	})
	return c.JSON(code, echo.Map{
		"status": "success",
		"token":  s.Token,
		"data":   echo.Map{"user": s.User},
	})
}
