package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/role-auth/internal/model"
)

// MemoryStore is an in-process backend selected with a memory:// database
// URI.  It enforces the same unique keys and version checks as the
// durable backends so service behaviour does not depend on the store.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]model.User
	tokens map[string]model.AccessToken
	roles  map[string]model.Role
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]model.User),
		tokens: make(map[string]model.AccessToken),
		roles:  make(map[string]model.Role),
	}
}

// Stores exposes the memory store through the backend-neutral bundle.
func (m *MemoryStore) Stores() Stores {
	return Stores{Users: memoryUsers{m}, Tokens: memoryTokens{m}, Roles: memoryRoles{m}}
}

func cloneUser(u model.User) model.User {
	if u.Roles != nil {
		u.Roles = slices.Clone(u.Roles)
	}
	return u
}

type memoryUsers struct{ m *MemoryStore }

func (s memoryUsers) emailTaken(email, exceptID string) bool {
	for id, u := range s.m.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (s memoryUsers) Create(_ context.Context, u model.User) (model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.emailTaken(u.Email, "") {
		return model.User{}, ErrDuplicate
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Version = 1
	u.CreatedAt, u.UpdatedAt = now, now
	s.m.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (s memoryUsers) GetByID(_ context.Context, id string) (model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s memoryUsers) find(match func(model.User) bool) (model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s memoryUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.Email == email })
}

func (s memoryUsers) GetByName(_ context.Context, name string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.Name == name })
}

func (s memoryUsers) List(_ context.Context) ([]model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := make([]model.User, 0, len(s.m.users))
	for _, u := range s.m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memoryUsers) Update(_ context.Context, u model.User) (model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.users[u.ID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	if cur.Version != u.Version {
		return model.User{}, ErrVersionConflict
	}
	if s.emailTaken(u.Email, u.ID) {
		return model.User{}, ErrDuplicate
	}
	u.Version++
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.m.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (s memoryUsers) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.users, id)
	return nil
}

type memoryTokens struct{ m *MemoryStore }

func (s memoryTokens) Put(_ context.Context, token, userID string) (model.AccessToken, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tokens[token]; ok {
		return model.AccessToken{}, ErrDuplicate
	}
	t := model.AccessToken{ID: uuid.NewString(), Token: token, UserID: userID, CreatedAt: time.Now().UTC()}
	s.m.tokens[token] = t
	return t, nil
}

func (s memoryTokens) Get(_ context.Context, token string) (model.AccessToken, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	t, ok := s.m.tokens[token]
	if !ok {
		return model.AccessToken{}, ErrNotFound
	}
	return t, nil
}

func (s memoryTokens) Delete(_ context.Context, token string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tokens[token]; !ok {
		return 0, ErrNotFound
	}
	delete(s.m.tokens, token)
	return 1, nil
}

func (s memoryTokens) DeleteByOwner(_ context.Context, userID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for k, t := range s.m.tokens {
		if t.UserID == userID {
			delete(s.m.tokens, k)
			n++
		}
	}
	return n, nil
}

type memoryRoles struct{ m *MemoryStore }

func (s memoryRoles) Create(_ context.Context, r model.Role) (model.Role, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.roles[r.Name]; ok {
		return model.Role{}, ErrDuplicate
	}
	r.ID = uuid.NewString()
	s.m.roles[r.Name] = r
	return r, nil
}

func (s memoryRoles) GetByName(_ context.Context, name string) (model.Role, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	r, ok := s.m.roles[name]
	if !ok {
		return model.Role{}, ErrNotFound
	}
	return r, nil
}

func (s memoryRoles) List(_ context.Context) ([]model.Role, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := make([]model.Role, 0, len(s.m.roles))
	for _, r := range s.m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s memoryRoles) Update(_ context.Context, name string, r model.Role) (model.Role, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.roles[name]
	if !ok {
		return model.Role{}, ErrNotFound
	}
	if r.Name != name {
		if _, taken := s.m.roles[r.Name]; taken {
			return model.Role{}, ErrDuplicate
		}
		delete(s.m.roles, name)
	}
	r.ID = cur.ID
	s.m.roles[r.Name] = r
	return r, nil
}

func (s memoryRoles) Delete(_ context.Context, name string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.roles[name]; !ok {
		return ErrNotFound
	}
	delete(s.m.roles, name)
	return nil
}

func (s memoryRoles) DeleteAll(_ context.Context) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := int64(len(s.m.roles))
	s.m.roles = make(map[string]model.Role)
	return n, nil
}
