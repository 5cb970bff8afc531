// Package repository defines the persistence contracts for users, access
// tokens and roles together with their MongoDB, MySQL and in-memory
// implementations.  The sentinel errors below are shared by every
// backend so the service layer can classify failures with errors.Is
// without knowing which store is configured.
package repository

import "errors"

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique index (user
// email, role name, token string).  Services translate this into a
// conflict response.
var ErrDuplicate = errors.New("duplicate key")

// ErrVersionConflict is returned by UserStore.Update when the stored
// record's version no longer matches the version that was read, i.e. a
// concurrent writer got there first.
var ErrVersionConflict = errors.New("version conflict")
