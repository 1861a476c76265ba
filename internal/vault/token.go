package vault

import (
	"crypto/rand"
	"fmt"
)

// Access token parameters. Tokens are bearer secrets handed to callers
// of the execution API; they are stored verbatim and looked up by
// exact match together with the owner.
const (
	accessTokenBytes = 64
	tokenMinLen      = 40
	tokenMaxLen      = 128
)

// GenerateAccessToken returns a fresh 86-character URL-safe access
// token from 64 random bytes.
func GenerateAccessToken() (string, error) {
	b := make([]byte, accessTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return b64.EncodeToString(b), nil
}

// ValidateTokenFormat checks that a candidate token has a plausible
// shape before it is ever used in a query. It accepts 40 to 128
// characters from the URL-safe base64 alphabet. Format validation is
// deliberately loose so that token rotation can change the generated
// length without breaking stored references.
func ValidateTokenFormat(token string) error {
	if len(token) < tokenMinLen || len(token) > tokenMaxLen {
		return fmt.Errorf("access token must be between %d and %d characters", tokenMinLen, tokenMaxLen)
	}
	for _, c := range token {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("access token contains invalid character %q", c)
		}
	}
	return nil
}
