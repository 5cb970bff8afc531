package model

import "time"

// User represents an account record as stored in the `users`
// collection (or table, for the MySQL backend).  The directory owns
// these records exclusively; tokens only reference them by ID.
//
// Fields:
//  ID           – opaque identifier assigned by the store on creation.
//  Email        – unique login identifier.
//  Name         – display name.
//  Surname      – family name.
//  PasswordHash – bcrypt hash, never serialised outward.
//  Roles        – role names held by the user; nil means "no roles".
//  Version      – optimistic concurrency token, bumped on every write.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	Version      int64     `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user currently holds the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// UserPatch carries a partial update.  Only non-nil fields are applied;
// Password holds a plaintext value that the directory rehashes before
// anything is persisted.
type UserPatch struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Surname  *string `json:"surname,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.Name == nil && p.Surname == nil && p.Password == nil
}
