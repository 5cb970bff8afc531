package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/queue"
	"github.com/iliyamo/role-auth/internal/repository"
)

// UserFilter narrows UserAdminService.List to a single email or name.
type UserFilter struct {
	Email string
	Name  string
}

// RoleChange is the result of a bulk grant or revoke.  MissingRoles lists
// names that were not applied: unknown roles for a grant, roles the user
// did not hold for a revoke.
type RoleChange struct {
	User         model.User `json:"user"`
	MissingRoles []string   `json:"missing_roles"`
}

// UserAdminService implements user management for administrators and
// role assignment for superadmins.  Access policies are enforced by the
// caller; actor is recorded on emitted events.
type UserAdminService struct {
	d Deps
}

func NewUserAdminService(d Deps) *UserAdminService {
	return &UserAdminService{d: d.withDefaults()}
}

func (s *UserAdminService) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	var (
		u   model.User
		err error
	)
	switch {
	case f.Email != "":
		u, err = s.d.Directory.GetByEmail(ctx, f.Email)
	case f.Name != "":
		u, err = s.d.Directory.GetByName(ctx, f.Name)
	default:
		return s.d.Directory.List(ctx)
	}
	if KindOf(err) == KindNotFound {
		return []model.User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []model.User{u}, nil
}

func (s *UserAdminService) Get(ctx context.Context, id string) (model.User, error) {
	return s.d.Directory.GetByID(ctx, id)
}

// Create adds a user without roles.  Roles are assigned through the
// superadmin grant operations only.
func (s *UserAdminService) Create(ctx context.Context, actor model.User, nu NewUser) (model.User, error) {
	u, err := s.d.Directory.Create(ctx, nu)
	if err != nil {
		return model.User{}, err
	}
	ev := queue.NewUserEvent(queue.EventCreated, u.ID, u.Email)
	ev.ActorID = actor.ID
	emit(ctx, s.d.Events, s.d.Log, ev)
	return u, nil
}

// Update edits another user's profile and revokes all of their tokens.
func (s *UserAdminService) Update(ctx context.Context, actor model.User, id string, patch model.UserPatch) (model.User, error) {
	u, err := s.d.Directory.Update(ctx, id, patch)
	if err != nil {
		return model.User{}, err
	}
	if _, err := s.d.Tokens.DeleteByOwner(ctx, u.ID); err != nil {
		return model.User{}, Internal(err)
	}
	ev := queue.NewUserEvent(queue.EventProfileUpdated, u.ID, u.Email)
	ev.ActorID = actor.ID
	emit(ctx, s.d.Events, s.d.Log, ev)
	return u, nil
}

// Delete removes a user and all of their tokens.
func (s *UserAdminService) Delete(ctx context.Context, actor model.User, id string) error {
	u, err := s.d.Directory.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return deleteUser(ctx, s.d, u, actor.ID)
}

// catalogued reports whether a role with the given name exists.
func (s *UserAdminService) catalogued(ctx context.Context, name string) (bool, error) {
	_, err := s.d.Roles.GetByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, Internal(err)
	}
	return true, nil
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *UserAdminService) rolesEvent(ctx context.Context, typ string, actor, u model.User, roles []string) {
	ev := queue.NewUserEvent(typ, u.ID, u.Email)
	ev.ActorID = actor.ID
	ev.Roles = roles
	emit(ctx, s.d.Events, s.d.Log, ev)
}

// GrantRole adds one catalogued role.  Granting a role the user already
// holds is a Conflict.
func (s *UserAdminService) GrantRole(ctx context.Context, actor model.User, id, role string) (model.User, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return model.User{}, Validation("role is required")
	}
	u, err := s.d.Directory.MutateRoles(ctx, id, func(u *model.User) (bool, error) {
		ok, err := s.catalogued(ctx, role)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, NotFound("role not found")
		}
		if u.HasRole(role) {
			return false, Conflict(fmt.Sprintf("role %q already assigned", role))
		}
		u.Roles = append(u.Roles, role)
		return true, nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.rolesEvent(ctx, queue.EventRolesGranted, actor, u, []string{role})
	return u, nil
}

// GrantRoles adds every catalogued role in roles.  Unknown names are
// reported back in MissingRoles; a name the user already holds fails the
// whole batch with Conflict.
func (s *UserAdminService) GrantRoles(ctx context.Context, actor model.User, id string, roles []string) (RoleChange, error) {
	roles = cleanNames(roles)
	if len(roles) == 0 {
		return RoleChange{}, Validation("roles are required")
	}
	var granted, missing []string
	u, err := s.d.Directory.MutateRoles(ctx, id, func(u *model.User) (bool, error) {
		granted, missing = nil, []string{}
		for _, r := range roles {
			ok, err := s.catalogued(ctx, r)
			if err != nil {
				return false, err
			}
			if !ok {
				missing = append(missing, r)
				continue
			}
			if u.HasRole(r) {
				return false, Conflict(fmt.Sprintf("role %q already assigned", r))
			}
			granted = append(granted, r)
		}
		u.Roles = append(u.Roles, granted...)
		return len(granted) > 0, nil
	})
	if err != nil {
		return RoleChange{}, err
	}
	if len(granted) > 0 {
		s.rolesEvent(ctx, queue.EventRolesGranted, actor, u, granted)
	}
	return RoleChange{User: u, MissingRoles: missing}, nil
}

// RevokeRole removes one role the user holds, even if it has since been
// deleted from the catalogue.  An unheld role is a Conflict, or NotFound
// when it is not catalogued either.
func (s *UserAdminService) RevokeRole(ctx context.Context, actor model.User, id, role string) (model.User, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return model.User{}, Validation("role is required")
	}
	u, err := s.d.Directory.MutateRoles(ctx, id, func(u *model.User) (bool, error) {
		if !u.HasRole(role) {
			ok, err := s.catalogued(ctx, role)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, NotFound("role not found")
			}
			return false, Conflict(fmt.Sprintf("role %q not assigned", role))
		}
		u.Roles = slices.DeleteFunc(u.Roles, func(r string) bool { return r == role })
		return true, nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.rolesEvent(ctx, queue.EventRolesRevoked, actor, u, []string{role})
	return u, nil
}

// RevokeRoles removes every held role in roles and reports the names the
// user did not hold in MissingRoles.  It never fails for unheld names.
func (s *UserAdminService) RevokeRoles(ctx context.Context, actor model.User, id string, roles []string) (RoleChange, error) {
	roles = cleanNames(roles)
	if len(roles) == 0 {
		return RoleChange{}, Validation("roles are required")
	}
	var revoked, missing []string
	u, err := s.d.Directory.MutateRoles(ctx, id, func(u *model.User) (bool, error) {
		revoked, missing = nil, []string{}
		for _, r := range roles {
			if u.HasRole(r) {
				revoked = append(revoked, r)
			} else {
				missing = append(missing, r)
			}
		}
		u.Roles = slices.DeleteFunc(u.Roles, func(r string) bool { return slices.Contains(revoked, r) })
		return len(revoked) > 0, nil
	})
	if err != nil {
		return RoleChange{}, err
	}
	if len(revoked) > 0 {
		s.rolesEvent(ctx, queue.EventRolesRevoked, actor, u, revoked)
	}
	return RoleChange{User: u, MissingRoles: missing}, nil
}
