package session

import "errors"

var (
	// ErrNotAuthenticated is returned whenever the session cannot be proven
	// valid: missing credential, rejected credential, or an unreachable
	// backend during the auth check. Callers route to the entry screen.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrAllFieldsRequired        = errors.New("all fields are required")
	ErrPasswordTooShort         = errors.New("password must be at least 6 characters long")
)
