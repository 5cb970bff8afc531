package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/repository"
)

// RolePatch is a partial role update; nil fields keep their value.
type RolePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RoleService manages the role catalogue.  Deleting a role does not
// touch users that hold its name.
type RoleService struct {
	roles repository.RoleStore
}

func NewRoleService(roles repository.RoleStore) *RoleService {
	return &RoleService{roles: roles}
}

var errRoleExists = Conflict("role already exists")

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, name string) (model.Role, error) {
	r, err := s.roles.GetByName(ctx, name)
	return r, storeErr(err, "role")
}

func (s *RoleService) Create(ctx context.Context, r model.Role) (model.Role, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return model.Role{}, Validation("role name is required")
	}
	created, err := s.roles.Create(ctx, r)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Role{}, errRoleExists
	}
	return created, storeErr(err, "role")
}

// Update renames and/or redescribes a role.  Users holding the old name
// keep it.
func (s *RoleService) Update(ctx context.Context, name string, p RolePatch) (model.Role, error) {
	if p.Name == nil && p.Description == nil {
		return model.Role{}, Validation("nothing to update")
	}
	cur, err := s.roles.GetByName(ctx, name)
	if err != nil {
		return model.Role{}, storeErr(err, "role")
	}
	next := cur
	if p.Name != nil {
		if next.Name = strings.TrimSpace(*p.Name); next.Name == "" {
			return model.Role{}, Validation("role name must not be empty")
		}
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	updated, err := s.roles.Update(ctx, name, next)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.Role{}, errRoleExists
	}
	return updated, storeErr(err, "role")
}

func (s *RoleService) Delete(ctx context.Context, name string) error {
	return storeErr(s.roles.Delete(ctx, name), "role")
}

func (s *RoleService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.roles.DeleteAll(ctx)
	if err != nil {
		return 0, Internal(err)
	}
	return n, nil
}

// EnsureBuiltins creates the admin and superadmin roles if missing.
func (s *RoleService) EnsureBuiltins(ctx context.Context) error {
	builtins := []model.Role{
		{Name: model.RoleAdmin, Description: "Manage users and read the role catalogue"},
		{Name: model.RoleSuperadmin, Description: "Everything admin can do plus role assignment and catalogue changes"},
	}
	for _, r := range builtins {
		if _, err := s.roles.Create(ctx, r); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return Internal(err)
		}
	}
	return nil
}
