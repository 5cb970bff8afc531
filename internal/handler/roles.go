package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/role-auth/internal/middleware"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/service"
)

// RoleHandler serves the role catalogue under /v1/roles.
type RoleHandler struct {
	Roles *service.RoleService
}

func NewRoleHandler(r *service.RoleService) *RoleHandler {
	return &RoleHandler{Roles: r}
}

type createRoleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

func (h *RoleHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Roles.Get(ctx, c.Param("name"))
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": r})
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleReq
	if err := bind(c, &req); err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Roles.Create(ctx, model.Role{Name: req.Name, Description: req.Description})
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"role": r})
}

func (h *RoleHandler) Update(c echo.Context) error {
	var patch service.RolePatch
	if err := bind(c, &patch); err != nil {
		return middleware.WriteError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Roles.Update(ctx, c.Param("name"), patch)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": r})
}

// Delete removes one role.  Users keep the name in their role lists.
func (h *RoleHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Roles.Delete(ctx, c.Param("name")); err != nil {
		return middleware.WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll empties the catalogue, built-in roles included.
func (h *RoleHandler) DeleteAll(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Roles.DeleteAll(ctx)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
