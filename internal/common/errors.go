// Package common defines shared constants and sentinel errors used across
// the secure file storage layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Startup errors (malformed or too short key material, bad settings).
	ErrConfiguration = errors.New("configuration error")

	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Access policy denials.
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("forbidden")

	// Crypto errors. ErrDecryption never says which key failed.
	ErrDecryption = errors.New("decryption failed")
	ErrIntegrity  = errors.New("checksum mismatch")

	// Content store errors. Safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Validation errors for caller-supplied input.
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed bearer token).
	ErrInvalidToken = errors.New("invalid token")
)
