// Package common defines shared constants and sentinel errors used across
// the vault, store, and upload layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Key / lifecycle errors.
	ErrNotUnlocked       = errors.New("database not unlocked")
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrNotInitialized    = errors.New("store not initialized")
	ErrInstanceMismatch  = errors.New("store already bound to another instance")

	// Store-level errors.
	ErrNotFound         = errors.New("not found")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrStoreIO          = errors.New("storage i/o failure")

	// Upload-side errors.
	ErrEmptyPayload = errors.New("empty payload")
)
