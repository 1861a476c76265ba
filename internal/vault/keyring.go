package vault

import "sync"

// Keyring holds the lazily derived master key. Derivation runs at most
// once per process; the cost of PBKDF2 is paid on first use, not at
// startup, so an unconfigured vault module can still load and report a
// clean validation error instead of panicking.
type Keyring struct {
	secret string

	once      sync.Once
	masterKey string
	deriveErr error
}

// NewKeyring builds a keyring around the application secret. The secret
// itself is kept only long enough to derive the master key.
func NewKeyring(secret string) *Keyring {
	return &Keyring{secret: secret}
}

// MasterKey returns the base64url-encoded master key, deriving it on
// first call.
func (k *Keyring) MasterKey() (string, error) {
	k.once.Do(func() {
		k.masterKey, k.deriveErr = DeriveMasterKey(k.secret)
		k.secret = ""
	})
	return k.masterKey, k.deriveErr
}
