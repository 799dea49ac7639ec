package repository

import "errors"

// ErrDuplicate is returned by Create when a unique field is already taken.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned by writes that depend on another record which no
// longer exists, such as a message whose conversation was deleted.
var ErrNotFound = errors.New("record not found")
