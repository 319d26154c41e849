package application

import "errors"

// Service-level outcomes the handlers translate into HTTP statuses.
var (
	// ErrInvalidCredentials covers both "no such email" and "wrong
	// password". Conflating the two keeps login responses from
	// confirming which emails have accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")

	// ErrForbidden means the resource exists but the caller does not
	// own it. Distinct from not-found on purpose.
	ErrForbidden = errors.New("forbidden")

	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
)
