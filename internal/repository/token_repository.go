package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/role-auth/internal/model"
)

// TokenRepo persists access tokens in 'user_access_tokens' (unique
// 'token' column, indexed 'user_id').
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// MaxTokenLength is the width of user_access_tokens.token.
const MaxTokenLength = 1024

// Put inserts a token row.  Tokens wider than the column are refused
// before the insert.
func (r *TokenRepo) Put(ctx context.Context, token, userID string) (model.AccessToken, error) {
	if len(token) > MaxTokenLength {
		return model.AccessToken{}, fmt.Errorf("token is %d bytes, column holds %d", len(token), MaxTokenLength)
	}
	t := model.AccessToken{ID: uuid.NewString(), Token: token, UserID: userID, CreatedAt: time.Now().UTC()}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_access_tokens (id, token, user_id, created_at) VALUES (?,?,?,?)",
		t.ID, t.Token, t.UserID, t.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return model.AccessToken{}, ErrDuplicate
		}
		return model.AccessToken{}, fmt.Errorf("insert token: %w", err)
	}
	return t, nil
}

// Get returns the token row for the given token string.
func (r *TokenRepo) Get(ctx context.Context, token string) (model.AccessToken, error) {
	var t model.AccessToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token, user_id, created_at FROM user_access_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.Token, &t.UserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccessToken{}, ErrNotFound
		}
		return model.AccessToken{}, fmt.Errorf("select token: %w", err)
	}
	return t, nil
}

// Delete removes a single token.
func (r *TokenRepo) Delete(ctx context.Context, token string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM user_access_tokens WHERE token=?", token)
	if err != nil {
		return 0, fmt.Errorf("delete token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// DeleteByOwner removes all of the user's tokens.
func (r *TokenRepo) DeleteByOwner(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM user_access_tokens WHERE user_id=?", userID)
	if err != nil {
		return 0, fmt.Errorf("delete tokens by owner: %w", err)
	}
	return res.RowsAffected()
}
