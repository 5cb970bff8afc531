package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/role-auth/internal/model"
)

// RoleRepo is the MySQL RoleStore over 'user_roles' (unique 'name').
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

func (r *RoleRepo) Create(ctx context.Context, role model.Role) (model.Role, error) {
	role.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (id, name, description) VALUES (?,?,?)",
		role.ID, role.Name, role.Description)
	if err != nil {
		if isDuplicate(err) {
			return model.Role{}, ErrDuplicate
		}
		return model.Role{}, fmt.Errorf("insert role: %w", err)
	}
	return role, nil
}

func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, description FROM user_roles WHERE name=? LIMIT 1", name).
		Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Role{}, ErrNotFound
		}
		return model.Role{}, fmt.Errorf("select role: %w", err)
	}
	return role, nil
}

func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, description FROM user_roles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()
	out := []model.Role{}
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Update renames and/or redescribes the role called name.
// MySQL reports zero affected rows for a no-op update, so existence is
// checked up front rather than from RowsAffected.
func (r *RoleRepo) Update(ctx context.Context, name string, role model.Role) (model.Role, error) {
	cur, err := r.GetByName(ctx, name)
	if err != nil {
		return model.Role{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE user_roles SET name=?, description=? WHERE id=?", role.Name, role.Description, cur.ID)
	if err != nil {
		if isDuplicate(err) {
			return model.Role{}, ErrDuplicate
		}
		return model.Role{}, fmt.Errorf("update role: %w", err)
	}
	cur.Name, cur.Description = role.Name, role.Description
	return cur, nil
}

func (r *RoleRepo) Delete(ctx context.Context, name string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE name=?", name)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RoleRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM user_roles")
	if err != nil {
		return 0, fmt.Errorf("delete roles: %w", err)
	}
	return res.RowsAffected()
}

// NewMySQLStores wires the three MySQL-backed stores over db.  The
// returned bundle closes db on Close.
func NewMySQLStores(db *sql.DB) Stores {
	return Stores{
		Users:   NewUserRepo(db),
		Tokens:  NewTokenRepo(db),
		Roles:   NewRoleRepo(db),
		closeFn: func(context.Context) error { return db.Close() },
	}
}
