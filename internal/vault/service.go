package vault

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/roles"
)

// Service implements credential set management and token resolution.
// It is the only place where ciphertext and plaintext meet; handlers
// above it and the store below it never see both at once.
type Service struct {
	store   *Store
	keyring *Keyring
	logger  *zap.Logger
	events  EventPublisher
}

// EventPublisher is the subset of the event bus the vault emits on.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// NewService builds the vault service.
func NewService(store *Store, keyring *Keyring, logger *zap.Logger, events EventPublisher) *Service {
	return &Service{store: store, keyring: keyring, logger: logger, events: events}
}

// Create encrypts and stores a new credential set and returns its
// metadata together with the freshly generated access token. The token
// is disclosed only here and on rotation.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (*CredentialSet, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ValidationError("name is required")
	}
	if req.Username == "" || req.Password == "" {
		return nil, ValidationError("username and password are required")
	}

	master, err := s.keyring.MasterKey()
	if err != nil {
		return nil, err
	}
	encUser, encPass, keyID, err := EncryptCredentials(master, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	token, err := GenerateAccessToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cs := &CredentialSet{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		Name:              req.Name,
		EncryptedUsername: encUser,
		EncryptedPassword: encPass,
		KeyID:             keyID,
		AccessToken:       token,
		Platforms:         normalizePlatforms(req.Platforms),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, cs); err != nil {
		return nil, err
	}

	s.logger.Info("credential set created",
		zap.String("id", cs.ID), zap.String("owner", ownerID))
	s.publish(ctx, EventCredentialCreated, cs)
	return cs, nil
}

// Update applies partial changes to an owned credential set. Providing
// a password re-encrypts both fields under a fresh record key; the
// username alone cannot change without the password.
func (s *Service) Update(ctx context.Context, id, ownerID string, req UpdateRequest) (*CredentialSet, error) {
	cs, err := s.store.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ValidationError("name cannot be empty")
		}
		cs.Name = name
	}
	if req.Platforms != nil {
		cs.Platforms = normalizePlatforms(req.Platforms)
	}
	if req.IsActive != nil {
		cs.IsActive = *req.IsActive
	}

	if req.Password != nil {
		if req.Username == nil {
			return nil, ValidationError("username is required when changing the password")
		}
		master, err := s.keyring.MasterKey()
		if err != nil {
			return nil, err
		}
		encUser, encPass, keyID, err := EncryptCredentials(master, *req.Username, *req.Password)
		if err != nil {
			return nil, err
		}
		cs.EncryptedUsername = encUser
		cs.EncryptedPassword = encPass
		cs.KeyID = keyID
	} else if req.Username != nil {
		return nil, ValidationError("password is required when changing the username")
	}

	cs.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, cs); err != nil {
		return nil, err
	}

	s.logger.Info("credential set updated",
		zap.String("id", cs.ID), zap.String("owner", ownerID))
	s.publish(ctx, EventCredentialUpdated, cs)
	return cs, nil
}

// Delete removes an owned credential set.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("credential set deleted",
		zap.String("id", id), zap.String("owner", ownerID))
	s.events.Publish(ctx, EventCredentialDeleted, map[string]string{
		"id": id, "owner_id": ownerID,
	})
	return nil
}

// Get returns an owned credential set's metadata.
func (s *Service) Get(ctx context.Context, id, ownerID string) (*CredentialSet, error) {
	return s.store.GetByID(ctx, id, ownerID)
}

// List returns all credential sets owned by a user.
func (s *Service) List(ctx context.Context, ownerID string) ([]CredentialSet, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// RegenerateToken rotates the access token of an owned credential set
// and returns the record with the new token. The old token is invalid
// the moment the update commits.
func (s *Service) RegenerateToken(ctx context.Context, id, ownerID string) (*CredentialSet, error) {
	cs, err := s.store.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	token, err := GenerateAccessToken()
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateAccessToken(ctx, id, ownerID, token); err != nil {
		return nil, err
	}
	cs.AccessToken = token

	s.logger.Info("access token regenerated",
		zap.String("id", id), zap.String("owner", ownerID))
	s.publish(ctx, EventTokenRegenerated, cs)
	return cs, nil
}

// GetCredentialsByToken resolves a token for the requesting user
// without any platform check. Used by callers that already know the
// target is unscoped, such as connectivity tests.
func (s *Service) GetCredentialsByToken(ctx context.Context, token, ownerID string) (*roles.DeviceCredentials, error) {
	cs, err := s.resolveToken(ctx, token, ownerID)
	if err != nil {
		return nil, err
	}
	return s.decrypt(cs)
}

// ResolveForDevice resolves an access token into decrypted credentials
// for a specific device, enforcing ownership and platform scope.
func (s *Service) ResolveForDevice(ctx context.Context, token, userID string, device *models.Device) (*roles.DeviceCredentials, error) {
	cs, err := s.resolveToken(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	// Empty scope means the set works for any platform. Stored scopes
	// are lowercased, so the device slug is lowercased too; NetBox
	// permits mixed-case slugs.
	if len(cs.Platforms) > 0 && device != nil {
		if !slices.Contains(cs.Platforms, strings.ToLower(device.Platform)) {
			return nil, fmt.Errorf("%w: credential set %q does not cover platform %q",
				ErrPlatformMismatch, cs.Name, device.Platform)
		}
	}
	return s.decrypt(cs)
}

// MarkUsed records a confirmed successful use of the credential set.
// Callers invoke it only after the credentials actually worked, so
// last_used reflects real use rather than attempts.
func (s *Service) MarkUsed(ctx context.Context, credentialSetID string) error {
	return s.store.TouchLastUsed(ctx, credentialSetID)
}

func (s *Service) resolveToken(ctx context.Context, token, ownerID string) (*CredentialSet, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	cs, err := s.store.GetByTokenAndOwner(ctx, token, ownerID)
	if err != nil {
		return nil, err
	}
	if !cs.IsActive {
		return nil, ErrInactive
	}
	return cs, nil
}

func (s *Service) decrypt(cs *CredentialSet) (*roles.DeviceCredentials, error) {
	master, err := s.keyring.MasterKey()
	if err != nil {
		return nil, err
	}
	username, password, err := DecryptCredentials(master, cs.EncryptedUsername, cs.EncryptedPassword, cs.KeyID)
	if err != nil {
		s.logger.Error("credential decryption failed",
			zap.String("id", cs.ID), zap.Error(err))
		return nil, err
	}
	return &roles.DeviceCredentials{
		CredentialSetID: cs.ID,
		Username:        username,
		Password:        password,
	}, nil
}

func (s *Service) publish(ctx context.Context, topic string, cs *CredentialSet) {
	s.events.Publish(ctx, topic, map[string]string{
		"id": cs.ID, "owner_id": cs.OwnerID, "name": cs.Name,
	})
}

func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
