package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/iliyamo/role-auth/internal/model"
	"github.com/iliyamo/role-auth/internal/repository"
)

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// NewUser is the input to Directory.Create.
type NewUser struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Password string `json:"password"`
}

// Directory is the user record store seen by the services: validation,
// email uniqueness, password hashing and version-checked writes on top of
// a repository.UserStore.
type Directory struct {
	users  repository.UserStore
	hasher PasswordHasher
}

func NewDirectory(users repository.UserStore, hasher PasswordHasher) *Directory {
	return &Directory{users: users, hasher: hasher}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

var errEmailTaken = Conflict("email already registered")

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

func checkPassword(p string) error {
	switch {
	case p == "":
		return Validation("password is required")
	case len(p) > maxPasswordBytes:
		return Validation("password must be at most 72 bytes")
	}
	return nil
}

// Create validates nu, checks the email is free, hashes the password and
// stores the record without roles.  The store's unique index closes the
// race between the check and the insert.
func (d *Directory) Create(ctx context.Context, nu NewUser) (model.User, error) {
	nu.Email = normalizeEmail(nu.Email)
	nu.Name = strings.TrimSpace(nu.Name)
	nu.Surname = strings.TrimSpace(nu.Surname)
	switch {
	case !validEmail(nu.Email):
		return model.User{}, Validation("a valid email is required")
	case nu.Name == "" || nu.Surname == "":
		return model.User{}, Validation("name and surname are required")
	}
	if err := checkPassword(nu.Password); err != nil {
		return model.User{}, err
	}

	if _, err := d.users.GetByEmail(ctx, nu.Email); err == nil {
		return model.User{}, errEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, Internal(err)
	}

	hash, err := d.hasher.Hash(nu.Password)
	if err != nil {
		return model.User{}, Internal(err)
	}
	u, err := d.users.Create(ctx, model.User{
		Email:        nu.Email,
		Name:         nu.Name,
		Surname:      nu.Surname,
		PasswordHash: hash,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, errEmailTaken
	}
	if err != nil {
		return model.User{}, storeErr(err, "user")
	}
	return u, nil
}

func (d *Directory) GetByID(ctx context.Context, id string) (model.User, error) {
	u, err := d.users.GetByID(ctx, id)
	return u, storeErr(err, "user")
}

func (d *Directory) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := d.users.GetByEmail(ctx, normalizeEmail(email))
	return u, storeErr(err, "user")
}

func (d *Directory) GetByName(ctx context.Context, name string) (model.User, error) {
	u, err := d.users.GetByName(ctx, strings.TrimSpace(name))
	return u, storeErr(err, "user")
}

func (d *Directory) List(ctx context.Context) ([]model.User, error) {
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	return users, nil
}

// Update applies the non-nil fields of patch to the user with the given
// id.  A new password is hashed before the write; a stale version or a
// taken email yields Conflict.
func (d *Directory) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	if patch.Empty() {
		return model.User{}, Validation("nothing to update")
	}
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr(err, "user")
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if !validEmail(email) {
			return model.User{}, Validation("a valid email is required")
		}
		if email != u.Email {
			if other, err := d.users.GetByEmail(ctx, email); err == nil && other.ID != u.ID {
				return model.User{}, errEmailTaken
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return model.User{}, Internal(err)
			}
		}
		u.Email = email
	}
	if patch.Name != nil {
		if u.Name = strings.TrimSpace(*patch.Name); u.Name == "" {
			return model.User{}, Validation("name must not be empty")
		}
	}
	if patch.Surname != nil {
		if u.Surname = strings.TrimSpace(*patch.Surname); u.Surname == "" {
			return model.User{}, Validation("surname must not be empty")
		}
	}
	if patch.Password != nil {
		if err := checkPassword(*patch.Password); err != nil {
			return model.User{}, err
		}
		hash, err := d.hasher.Hash(*patch.Password)
		if err != nil {
			return model.User{}, Internal(err)
		}
		u.PasswordHash = hash
	}

	updated, err := d.users.Update(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, errEmailTaken
	}
	return updated, storeErr(err, "user")
}

// MutateRoles loads the user, lets fn edit its role list and writes it
// back with a version check.  fn returning false skips the write.  A
// concurrent write between the load and the update yields Conflict; the
// caller decides whether to retry.
func (d *Directory) MutateRoles(ctx context.Context, id string, fn func(u *model.User) (bool, error)) (model.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr(err, "user")
	}
	changed, err := fn(&u)
	if err != nil {
		return model.User{}, err
	}
	if !changed {
		return u, nil
	}
	if len(u.Roles) == 0 {
		u.Roles = nil
	}
	updated, err := d.users.Update(ctx, u)
	return updated, storeErr(err, "user")
}

func (d *Directory) Delete(ctx context.Context, id string) error {
	return storeErr(d.users.Delete(ctx, id), "user")
}
