package service

import (
	"context"

	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/queue"
)

// BootstrapSuperadmin seeds the built-in roles and makes sure a user with
// nu's email exists and holds the superadmin role.  An existing user is
// promoted and keeps its password.  Running it twice is harmless.
func BootstrapSuperadmin(ctx context.Context, d Deps, nu NewUser) (model.User, error) {
	d = d.withDefaults()
	if err := NewRoleService(d.Roles).EnsureBuiltins(ctx); err != nil {
		return model.User{}, err
	}

	u, err := d.Directory.GetByEmail(ctx, nu.Email)
	switch {
	case KindOf(err) == KindNotFound:
		if u, err = d.Directory.Create(ctx, nu); err != nil {
			return model.User{}, err
		}
	case err != nil:
		return model.User{}, err
	}

	granted := false
	u, err = d.Directory.MutateRoles(ctx, u.ID, func(u *model.User) (bool, error) {
		granted = !u.HasRole(model.RoleSuperadmin)
		if granted {
			u.Roles = append(u.Roles, model.RoleSuperadmin)
		}
		return granted, nil
	})
	if err != nil {
		return model.User{}, err
	}
	if !granted {
		return u, nil
	}
	ev := queue.NewUserEvent(queue.EventRolesGranted, u.ID, u.Email)
	ev.Roles = []string{model.RoleSuperadmin}
	emit(ctx, d.Events, d.Log, ev)
	return u, nil
}
