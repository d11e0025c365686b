package service

import "errors"

// Internal token failure kinds (Revoked, StoreUnavailable) plus the
// codec's Malformed/InvalidSignature/Expired are collapsed into
// ErrInvalidToken or ErrInvalidCredentials at the orchestrator boundary;
// the precise kind is only ever logged. Input errors (ErrEmailTaken,
// ErrPasswordMismatch) are safe to surface verbatim.
var (
	ErrRevoked          = errors.New("token has been revoked")
	ErrStoreUnavailable = errors.New("revocation store unavailable")

	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUserNotFound       = errors.New("user not found")
)
