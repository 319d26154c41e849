package repository

import "errors"

// Storage-level outcomes shared by all repositories. The pgx
// implementations translate driver errors into these so callers never
// see raw constraint failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already taken")
)
