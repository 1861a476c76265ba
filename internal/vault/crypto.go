package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Changing any of these invalidates all
// stored ciphertext.
const (
	masterKeySalt   = "netcmd_credentials_v1"
	masterKeyIters  = 100_000
	masterKeyLen    = 32 // AES-256
	recordKeyIDLen  = 32 // random bytes per record key ID
	nonceLen        = 12 // AES-GCM standard nonce size
)

// b64 is the unpadded URL-safe encoding used for key IDs, tokens, and
// ciphertext blobs.
var b64 = base64.RawURLEncoding

// DeriveMasterKey derives the process-wide master key from the
// application secret using PBKDF2-HMAC-SHA256 and returns it
// base64url-encoded. The encoded form is the input to per-record key
// derivation, so it must stay stable across releases.
func DeriveMasterKey(secret string) (string, error) {
	if secret == "" {
		return "", &CryptoError{Op: "derive", Err: errors.New("empty application secret")}
	}
	key := pbkdf2.Key([]byte(secret), []byte(masterKeySalt), masterKeyIters, masterKeyLen, sha256.New)
	return b64.EncodeToString(key), nil
}

// NewKeyID returns a fresh random record key identifier
// (43 URL-safe characters from 32 random bytes).
func NewKeyID() (string, error) {
	b := make([]byte, recordKeyIDLen)
	if _, err := rand.Read(b); err != nil {
		return "", &CryptoError{Op: "derive", Err: fmt.Errorf("generate key id: %w", err)}
	}
	return b64.EncodeToString(b), nil
}

// recordKey derives the AES-256 key for a single credential record from
// the encoded master key and the record's key ID.
func recordKey(masterKeyB64, keyID string) ([]byte, error) {
	if masterKeyB64 == "" {
		return nil, &CryptoError{Op: "derive", Err: errors.New("master key not derived")}
	}
	if keyID == "" {
		return nil, &CryptoError{Op: "derive", Err: errors.New("empty key id")}
	}
	sum := sha256.Sum256([]byte(masterKeyB64 + keyID))
	return sum[:], nil
}

// EncryptField encrypts a single field under the record key using
// AES-256-GCM and returns base64url(nonce || ciphertext+tag).
func EncryptField(masterKeyB64, keyID, plaintext string) (string, error) {
	key, err := recordKey(masterKeyB64, keyID)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", &CryptoError{Op: "encrypt", Err: fmt.Errorf("generate nonce: %w", err)}
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return b64.EncodeToString(sealed), nil
}

// DecryptField decrypts a single field encrypted by EncryptField.
// Any malformed input, wrong key, or authentication tag mismatch is a
// CryptoError; there is no partial success.
func DecryptField(masterKeyB64, keyID, encoded string) (string, error) {
	key, err := recordKey(masterKeyB64, keyID)
	if err != nil {
		return "", err
	}

	data, err := b64.DecodeString(encoded)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("decode ciphertext: %w", err)}
	}
	if len(data) < nonceLen {
		return "", &CryptoError{Op: "decrypt", Err: errors.New("ciphertext too short")}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}

	plain, err := gcm.Open(nil, data[:nonceLen], data[nonceLen:], nil)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}
	return string(plain), nil
}

// EncryptCredentials encrypts a username/password pair under a freshly
// minted key ID. Each call produces a new key ID, so re-encrypting the
// same credentials never reuses a record key.
func EncryptCredentials(masterKeyB64, username, password string) (encUsername, encPassword, keyID string, err error) {
	keyID, err = NewKeyID()
	if err != nil {
		return "", "", "", err
	}
	encUsername, err = EncryptField(masterKeyB64, keyID, username)
	if err != nil {
		return "", "", "", err
	}
	encPassword, err = EncryptField(masterKeyB64, keyID, password)
	if err != nil {
		return "", "", "", err
	}
	return encUsername, encPassword, keyID, nil
}

// DecryptCredentials decrypts both fields of a credential record.
// Either both fields decrypt or the whole operation fails.
func DecryptCredentials(masterKeyB64, encUsername, encPassword, keyID string) (username, password string, err error) {
	username, err = DecryptField(masterKeyB64, keyID, encUsername)
	if err != nil {
		return "", "", err
	}
	password, err = DecryptField(masterKeyB64, keyID, encPassword)
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}
