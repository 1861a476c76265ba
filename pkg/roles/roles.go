// Package roles defines typed contracts for module roles.
// Modules that fill a role (declared via PluginInfo.Roles) should implement
// the corresponding interface so callers can use type-safe access via
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"

	"github.com/netcmd/netcmd/pkg/models"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleCredentialStore = "credential_store" //nolint:gosec // G101: role name, not a credential
	RoleInventory       = "inventory"
	RoleExecutor        = "executor"
	RoleRemoteAccess    = "remote_access"
)

// InventoryProvider is implemented by modules that expose the device
// inventory (devices, platforms, interfaces, VLANs, IP addresses).
type InventoryProvider interface {
	// DeviceByID returns a single device by its inventory ID.
	DeviceByID(ctx context.Context, id int) (*models.Device, error)

	// SiteVLANs returns the VLANs defined at a site, used as a fallback
	// when a device has no directly assigned VLANs.
	SiteVLANs(ctx context.Context, siteID int) ([]models.VLAN, error)
}

// CredentialResolver is implemented by modules that resolve credential
// access tokens into live device credentials for the requesting user.
type CredentialResolver interface {
	// ResolveForDevice resolves an access token into decrypted credentials,
	// enforcing ownership and platform-scope checks for the target device.
	ResolveForDevice(ctx context.Context, token, userID string, device *models.Device) (*DeviceCredentials, error)

	// MarkUsed records a confirmed successful use of the credential set.
	MarkUsed(ctx context.Context, credentialSetID string) error
}

// DeviceCredentials is a decrypted credential pair released to an executor.
// Never persisted or serialized.
type DeviceCredentials struct {
	CredentialSetID string
	Username        string
	Password        string
}
