package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/iliyamo/role-auth/internal/metrics"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/queue"
	"github.com/iliyamo/role-auth/internal/repository"
)

// Deps are the collaborators shared by the account and admin services.
// Events, Metrics and Log may be left zero.
type Deps struct {
	Directory *Directory
	Tokens    repository.TokenStore
	Roles     repository.RoleStore
	Hasher    PasswordHasher
	Issuer    TokenIssuer
	Events    EventPublisher
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = NopPublisher{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return d
}

// Session is a user together with a freshly issued access token.
type Session struct {
	User  model.User        `json:"user"`
	Token model.AccessToken `json:"access_token"`
}

// issueToken signs a token for u and stores its row.  Only the user id
// goes into the claims so the token size does not depend on the profile.
func issueToken(ctx context.Context, d Deps, u model.User) (model.AccessToken, error) {
	raw, err := d.Issuer.Issue(map[string]any{"sub": u.ID})
	if err != nil {
		return model.AccessToken{}, Internal(err)
	}
	t, err := d.Tokens.Put(ctx, raw, u.ID)
	if err != nil {
		return model.AccessToken{}, Internal(err)
	}
	return t, nil
}

// purgeAndIssue revokes every token of u and issues a replacement.
func purgeAndIssue(ctx context.Context, d Deps, u model.User) (Session, error) {
	if _, err := d.Tokens.DeleteByOwner(ctx, u.ID); err != nil {
		return Session{}, Internal(err)
	}
	t, err := issueToken(ctx, d, u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: t}, nil
}

// AccountService implements the flows a user runs on their own account.
type AccountService struct {
	d Deps

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(d Deps) *AccountService {
	return &AccountService{d: d.withDefaults()}
}

var errBadCredentials = Unauthorized("invalid credentials")

// Register creates a user without roles and signs them in.  If the token
// cannot be stored the new user is deleted.
func (s *AccountService) Register(ctx context.Context, nu NewUser) (Session, error) {
	u, err := s.d.Directory.Create(ctx, nu)
	if err != nil {
		return Session{}, err
	}
	t, err := issueToken(ctx, s.d, u)
	if err != nil {
		// Undo the insert so the email can be registered again.
		if derr := s.d.Directory.Delete(ctx, u.ID); derr != nil {
			s.d.Log.Error("rollback registration", "user_id", u.ID, "err", derr)
		}
		return Session{}, err
	}
	emit(ctx, s.d.Events, s.d.Log, queue.NewUserEvent(queue.EventRegistered, u.ID, u.Email))
	return Session{User: u, Token: t}, nil
}

// timingHash is a real bcrypt hash at the configured cost, compared
// against when the email is unknown so both failure paths take as long.
func (s *AccountService) timingHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.d.Hasher.Hash("role-auth-timing-equaliser")
		if err != nil {
			s.d.Log.Error("compute timing hash", "err", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// Login checks credentials and issues a new token.  An unknown email and
// a wrong password are indistinguishable to the caller.  Existing tokens
// are kept.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.d.Directory.GetByEmail(ctx, email)
	if err != nil {
		if KindOf(err) != KindNotFound {
			s.d.Metrics.Login("error")
			return Session{}, err
		}
		s.d.Hasher.Verify(s.timingHash(), password)
		s.d.Metrics.Login("invalid_credentials")
		return Session{}, errBadCredentials
	}
	if !s.d.Hasher.Verify(u.PasswordHash, password) {
		s.d.Metrics.Login("invalid_credentials")
		return Session{}, errBadCredentials
	}
	t, err := issueToken(ctx, s.d, u)
	if err != nil {
		s.d.Metrics.Login("error")
		return Session{}, err
	}
	s.d.Metrics.Login("success")
	return Session{User: u, Token: t}, nil
}

// UpdateProfile applies patch to the caller's record, revokes all their
// tokens and issues a fresh one bound to the updated record.
func (s *AccountService) UpdateProfile(ctx context.Context, current model.User, patch model.UserPatch) (Session, error) {
	u, err := s.d.Directory.Update(ctx, current.ID, patch)
	if err != nil {
		return Session{}, err
	}
	sess, err := purgeAndIssue(ctx, s.d, u)
	if err != nil {
		return Session{}, err
	}
	typ := queue.EventProfileUpdated
	if patch.Password != nil {
		typ = queue.EventPasswordChanged
	}
	emit(ctx, s.d.Events, s.d.Log, queue.NewUserEvent(typ, u.ID, u.Email))
	return sess, nil
}

// ChangePassword requires the current password before setting a new one.
// All tokens are revoked and a fresh one issued.
func (s *AccountService) ChangePassword(ctx context.Context, current model.User, oldPassword, newPassword string) (Session, error) {
	if oldPassword == "" || newPassword == "" {
		return Session{}, Validation("old_password and new_password are required")
	}
	// current came from the resolver and carries the stored hash.
	if !s.d.Hasher.Verify(current.PasswordHash, oldPassword) {
		return Session{}, Unauthorized("wrong old password")
	}
	return s.UpdateProfile(ctx, current, model.UserPatch{Password: &newPassword})
}

// Logout revokes the caller's tokens.  With onlyCurrent set just the
// presented token is deleted; otherwise every token of the user goes.
func (s *AccountService) Logout(ctx context.Context, current model.User, presented string, onlyCurrent bool) (int64, error) {
	if onlyCurrent {
		n, err := s.d.Tokens.Delete(ctx, presented)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, errInvalidToken
		}
		if err != nil {
			return 0, Internal(err)
		}
		return n, nil
	}
	n, err := s.d.Tokens.DeleteByOwner(ctx, current.ID)
	if err != nil {
		return 0, Internal(err)
	}
	emit(ctx, s.d.Events, s.d.Log, queue.NewUserEvent(queue.EventLoggedOut, current.ID, current.Email))
	return n, nil
}

// DeleteAccount removes the caller, revoking their tokens first so no
// token outlives its owner.
func (s *AccountService) DeleteAccount(ctx context.Context, current model.User) error {
	return deleteUser(ctx, s.d, current, "")
}

func deleteUser(ctx context.Context, d Deps, u model.User, actorID string) error {
	if _, err := d.Tokens.DeleteByOwner(ctx, u.ID); err != nil {
		return Internal(err)
	}
	if err := d.Directory.Delete(ctx, u.ID); err != nil {
		return err
	}
	ev := queue.NewUserEvent(queue.EventDeleted, u.ID, u.Email)
	ev.ActorID = actorID
	emit(ctx, d.Events, d.Log, ev)
	return nil
}
