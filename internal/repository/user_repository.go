package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/role-auth/internal/model"
)

const userColumns = "id,email,name,surname,password_hash,roles,version,created_at,updated_at"

// UserRepo is the MySQL UserStore over the 'users' table.  Roles are
// kept in a nullable JSON column; NULL means the user has no roles.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// isDuplicate reports a MySQL unique-key violation (error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func encodeRoles(roles []string) (sql.NullString, error) {
	if roles == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(roles)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u     model.User
		roles sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Surname, &u.PasswordHash, &roles,
		&u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	if roles.Valid && roles.String != "" {
		if err := json.Unmarshal([]byte(roles.String), &u.Roles); err != nil {
			return model.User{}, fmt.Errorf("decode roles of user %s: %w", u.ID, err)
		}
	}
	return u, nil
}

// Create inserts user and returns it with its new ID.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	roles, err := encodeRoles(u.Roles)
	if err != nil {
		return model.User{}, err
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Version = 1
	u.CreatedAt, u.UpdatedAt = now, now
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.Name, u.Surname, u.PasswordHash, roles, u.Version, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "email=?", email)
}

// GetByName fetches the first user with the given display name.
func (r *UserRepo) GetByName(ctx context.Context, name string) (model.User, error) {
	return r.getOne(ctx, "name=?", name)
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes u if the stored version still equals u.Version.
func (r *UserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	roles, err := encodeRoles(u.Roles)
	if err != nil {
		return model.User{}, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?,name=?,surname=?,password_hash=?,roles=?,version=version+1,updated_at=? WHERE id=? AND version=?",
		u.Email, u.Name, u.Surname, u.PasswordHash, roles, now, u.ID, u.Version)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, err
	}
	if n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id=?", u.ID).Scan(&exists); err != nil {
			return model.User{}, fmt.Errorf("count user: %w", err)
		}
		if exists == 0 {
			return model.User{}, ErrNotFound
		}
		return model.User{}, ErrVersionConflict
	}
	u.Version++
	u.UpdatedAt = now
	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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
