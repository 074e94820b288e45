package apikey

import "errors"

// Validation failures are deliberately coarse: a caller cannot tell an
// unknown key ID from a wrong secret or an expired key. The distinct
// internal reason is logged, never returned.
var (
	// ErrMalformedCredential indicates the credential is not "<keyId>:<keySecret>"
	ErrMalformedCredential = errors.New("malformed API key credential")

	// ErrInvalidCredential indicates the credential did not resolve to an
	// active, non-expired key with a matching secret
	ErrInvalidCredential = errors.New("invalid API key")

	// ErrKeyNotFound indicates a management operation addressed a key that
	// does not exist or is not owned by the caller
	ErrKeyNotFound = errors.New("API key not found")

	// ErrStoreUnavailable indicates a transient credential store failure
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
