package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/role-auth/internal/logging"
	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/queue"
	"github.com/iliyamo/role-auth/internal/repository"
	"github.com/iliyamo/role-auth/internal/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.UserEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.UserEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	stores   repository.Stores
	deps     Deps
	events   *recordingPublisher
	resolver *IdentityResolver
	accounts *AccountService
	admin    *UserAdminService
	roles    *RoleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher, err := utils.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := utils.NewTokenIssuer("test-secret", "HS256")
	require.NoError(t, err)

	stores := repository.NewMemoryStore().Stores()
	events := &recordingPublisher{}
	log := logging.Discard()
	deps := Deps{
		Directory: NewDirectory(stores.Users, hasher),
		Tokens:    stores.Tokens,
		Roles:     stores.Roles,
		Hasher:    hasher,
		Issuer:    issuer,
		Events:    events,
		Log:       log,
	}
	roles := NewRoleService(stores.Roles)
	require.NoError(t, roles.EnsureBuiltins(context.Background()))

	return &fixture{
		stores:   stores,
		deps:     deps,
		events:   events,
		resolver: NewIdentityResolver(issuer, stores.Tokens, stores.Users, nil, log),
		accounts: NewAccountService(deps),
		admin:    NewUserAdminService(deps),
		roles:    roles,
	}
}

func (f *fixture) register(t *testing.T, email string) Session {
	t.Helper()
	sess, err := f.accounts.Register(context.Background(), NewUser{
		Email: email, Name: "Test", Surname: "User", Password: "pa55word",
	})
	require.NoError(t, err)
	return sess
}

// withRoles writes roles straight to the store, bypassing the grant rules.
func (f *fixture) withRoles(t *testing.T, u model.User, roles ...string) model.User {
	t.Helper()
	cur, err := f.stores.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	cur.Roles = roles
	cur, err = f.stores.Users.Update(context.Background(), cur)
	require.NoError(t, err)
	return cur
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "error: %v", err)
}
