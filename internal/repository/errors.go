// Package repository defines error values shared across repositories. These
// sentinels let handlers distinguish failure scenarios: ErrNotFound maps to
// 404, ErrEmailExists and ErrLabelExists to 409 conflicts. Tenant mismatches
// never surface as a distinct error: every tenant-scoped query carries the
// restaurant id in its WHERE clause, so a foreign row simply comes back
// not-found.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when creating a user with a taken email.
var ErrEmailExists = errors.New("email already exists")

// ErrLabelExists is returned when creating a table whose label is already in
// use within the same restaurant.
var ErrLabelExists = errors.New("label already exists")

// ErrNameExists is returned when onboarding a restaurant whose name is taken.
var ErrNameExists = errors.New("name already exists")
