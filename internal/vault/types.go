package vault

import "time"

// CredentialSet is the stored form of a credential record. Username and
// password are present only as ciphertext; the plaintext never touches
// the database or the API surface.
type CredentialSet struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Name              string     `json:"name"`
	EncryptedUsername string     `json:"-"`
	EncryptedPassword string     `json:"-"`
	KeyID             string     `json:"-"`
	AccessToken       string     `json:"-"`
	Platforms         []string   `json:"platforms"`
	IsActive          bool       `json:"is_active"`
	LastUsed          *time.Time `json:"last_used,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Meta is the listing view of a credential set: everything except the
// ciphertext and the access token.
func (c *CredentialSet) Meta() CredentialSetMeta {
	return CredentialSetMeta{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Platforms: c.Platforms,
		IsActive:  c.IsActive,
		LastUsed:  c.LastUsed,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CredentialSetMeta is a credential set without secrets.
type CredentialSetMeta struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	Platforms []string   `json:"platforms"`
	IsActive  bool       `json:"is_active"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateRequest is the payload for creating a credential set.
type CreateRequest struct {
	Name      string   `json:"name"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Platforms []string `json:"platforms,omitempty"`
}

// UpdateRequest is the payload for updating a credential set. Password
// is optional; when omitted the stored ciphertext is left untouched,
// when present both fields are re-encrypted under a fresh key.
type UpdateRequest struct {
	Name      *string  `json:"name,omitempty"`
	Username  *string  `json:"username,omitempty"`
	Password  *string  `json:"password,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// CreateResponse carries the one-time disclosure of the access token
// after creation or token rotation.
type CreateResponse struct {
	CredentialSetMeta
	AccessToken string `json:"access_token"`
}
