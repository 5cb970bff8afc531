package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/repository"
)

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(claims map[string]any) (string, error)
	Verify(raw string) (jwt.MapClaims, error)
}

// IdentityResolver maps a presented bearer token to its owning user.
type IdentityResolver struct {
	issuer  TokenIssuer
	tokens  repository.TokenStore
	users   repository.UserStore
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewIdentityResolver(issuer TokenIssuer, tokens repository.TokenStore, users repository.UserStore, m *metrics.Metrics, log *slog.Logger) *IdentityResolver {
	if log == nil {
		log = slog.Default()
	}
	return &IdentityResolver{issuer: issuer, tokens: tokens, users: users, metrics: m, log: log}
}

var errInvalidToken = Unauthorized("invalid token")

// Resolve returns the user owning token.  The signature is checked first
// so tokens signed under a rotated key stop resolving even if their rows
// survive.  Then the token row is looked up by token string and its owner
// loaded.  A row whose owner no longer exists is Unauthorized.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		r.metrics.Resolution("missing_token")
		return model.User{}, Unauthorized("missing bearer token")
	}
	claims, err := r.issuer.Verify(token)
	if err != nil {
		r.metrics.Resolution("bad_signature")
		return model.User{}, errInvalidToken
	}

	row, err := r.tokens.Get(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		r.metrics.Resolution("unknown_token")
		return model.User{}, errInvalidToken
	}
	if err != nil {
		r.metrics.Resolution("error")
		return model.User{}, Internal(err)
	}
	if sub, _ := claims["sub"].(string); sub != "" && sub != row.UserID {
		r.metrics.Resolution("subject_mismatch")
		r.log.Warn("token subject does not match stored owner", "token_id", row.ID, "user_id", row.UserID)
		return model.User{}, errInvalidToken
	}

	u, err := r.users.GetByID(ctx, row.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		r.metrics.Resolution("orphaned_token")
		r.log.Warn("token owner no longer exists", "token_id", row.ID, "user_id", row.UserID)
		return model.User{}, errInvalidToken
	}
	if err != nil {
		r.metrics.Resolution("error")
		return model.User{}, Internal(err)
	}
	r.metrics.Resolution("ok")
	return u, nil
}
