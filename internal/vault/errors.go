package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by token resolution. A token that does not
// exist and a token owned by someone else produce the same error so the
// caller cannot probe for other users' tokens.
var (
	ErrInvalidToken     = errors.New("invalid or unknown access token")
	ErrPlatformMismatch = errors.New("credential set is not valid for this platform")
	ErrNotFound         = errors.New("credential set not found")
	ErrInactive         = errors.New("credential set is inactive")
)

// ValidationError marks a request rejected for a reason the caller can
// correct. The handler maps it to 400; anything unrecognized is treated
// as an internal fault and reported generically.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// CryptoError wraps a failure in key derivation, encryption, or decryption.
// The cause is preserved for logging but the message stays generic so
// ciphertext internals never leak into API responses.
type CryptoError struct {
	Op  string // "derive", "encrypt", "decrypt"
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("vault crypto %s failed: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}
