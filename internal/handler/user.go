package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Accounts is the user service: admin CRUD plus self-service.
type Accounts interface {
	Resource[model.User]
	UpdateMe(ctx context.Context, u *model.User, payload map[string]any) (*model.User, error)
	DeleteMe(ctx context.Context, id uint64) error
}

type UserHandler struct {
	*Factory[model.User]
	Users Accounts
}

func NewUserHandler(users Accounts, maxLimit int) *UserHandler {
	return &UserHandler{Factory: NewFactory[model.User](users, maxLimit), Users: users}
}

func (h *UserHandler) GetMe(c echo.Context) error {
	u, err := signedIn(c)
	if err != nil {
		return err
	}
	return h.getByID(c, u.ID)
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	u, err := signedIn(c)
	if err != nil {
		return err
	}
	payload, err := decodePayload(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	updated, err := h.Users.UpdateMe(ctx, u, payload)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"user": updated})
}

func (h *UserHandler) DeleteMe(c echo.Context) error {
	u, err := signedIn(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.DeleteMe(ctx, u.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func signedIn(c echo.Context) (*model.User, error) {
	if u := middleware.CurrentUser(c); u != nil {
		return u, nil
	}
	return nil, apperr.Unauthorized("You are not logged in! Please log in to get access")
}
