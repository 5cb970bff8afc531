package repository

import (
	"context"

	"github.com/iliyamo/role-auth/internal/model"
)

// UserStore persists user records.  Create and Update enforce email
// uniqueness (ErrDuplicate).  Update is a compare-and-swap on
// model.User.Version: it succeeds only if the stored version equals the
// version of the record passed in, and returns the record with the
// bumped version.
type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByName(ctx context.Context, name string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)
	Delete(ctx context.Context, id string) error
}

// TokenStore persists issued access tokens, indexed by token string and
// by owner.
type TokenStore interface {
	// Put stores a new token row for userID.
	Put(ctx context.Context, token, userID string) (model.AccessToken, error)
	// Get is a point lookup by token string.
	Get(ctx context.Context, token string) (model.AccessToken, error)
	// Delete removes exactly one token; ErrNotFound if none matched.
	Delete(ctx context.Context, token string) (int64, error)
	// DeleteByOwner removes every token of userID.  Zero matches is not an error.
	DeleteByOwner(ctx context.Context, userID string) (int64, error)
}

// RoleStore persists the role catalogue.  Names are unique.
type RoleStore interface {
	Create(ctx context.Context, r model.Role) (model.Role, error)
	GetByName(ctx context.Context, name string) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	Update(ctx context.Context, name string, r model.Role) (model.Role, error)
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Stores bundles the three stores of one backend and the function that
// releases the backend's connections.
type Stores struct {
	Users  UserStore
	Tokens TokenStore
	Roles  RoleStore

	closeFn func(ctx context.Context) error
}

// Close releases the backend connections.  Safe to call on a Stores
// without a close function.
func (s Stores) Close(ctx context.Context) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}

// WithTokens returns a copy of s using t as the token store.  Used to
// layer the Redis cache over a backend store.
func (s Stores) WithTokens(t TokenStore) Stores {
	s.Tokens = t
	return s
}
