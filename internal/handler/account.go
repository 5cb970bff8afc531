package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/middleware"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/service"
)

// AccountHandler serves the self-service endpoints: registration, login
// and everything under /v1/current.
type AccountHandler struct {
	Accounts *service.AccountService
}

func NewAccountHandler(a *service.AccountService) *AccountHandler {
	return &AccountHandler{Accounts: a}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// profileReq leaves out the password: changing it needs the old one and
// goes through /current/password.
type profileReq struct {
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
}

type passwordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Register: create the user and return a token immediately.
func (h *AccountHandler) Register(c echo.Context) error {
	var req service.NewUser
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Accounts.Register(ctx, req)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *AccountHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	if req.Email == "" || req.Password == "" {
		return middleware.WriteError(c, service.Validation("email/password required"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Current returns the authenticated user.
func (h *AccountHandler) Current(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// UpdateCurrent edits the caller's profile.  Every token of the caller is
// revoked and the response carries the replacement.
func (h *AccountHandler) UpdateCurrent(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	patch := model.UserPatch{Email: req.Email, Name: req.Name, Surname: req.Surname}
	if patch.Empty() {
		return middleware.WriteError(c, errNothingToDo)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Accounts.UpdateProfile(ctx, u, patch)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *AccountHandler) DeleteCurrent(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.DeleteAccount(ctx, u); err != nil {
		return middleware.WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) ChangePassword(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	var req passwordReq
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Accounts.ChangePassword(ctx, u, req.OldPassword, req.NewPassword)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// ConfirmEmail is a placeholder: there is no mail delivery yet, so the
// caller is returned unchanged.
func (h *AccountHandler) ConfirmEmail(c echo.Context) error {
	return h.Current(c)
}

// RecoverPassword is a placeholder like ConfirmEmail.
func (h *AccountHandler) RecoverPassword(c echo.Context) error {
	return h.Current(c)
}

// Logout revokes every token of the caller, or only the presented one
// with ?scope=current.
func (h *AccountHandler) Logout(c echo.Context) error {
	u, err := caller(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	onlyCurrent := c.QueryParam("scope") == "current"
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Accounts.Logout(ctx, u, middleware.PresentedToken(c), onlyCurrent)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}
