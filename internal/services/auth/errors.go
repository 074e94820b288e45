package auth

import "errors"

var (
	// ErrInvalidCredentials indicates a failed email/password login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates a token that failed signature, structure
	// or expiry checks
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrUserNotFound indicates the token's subject no longer resolves to
	// a user record
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountDeactivated indicates the user exists but is disabled
	ErrAccountDeactivated = errors.New("account is deactivated")

	// ErrInvalidRefreshToken indicates an unknown, revoked or expired
	// refresh token
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)
