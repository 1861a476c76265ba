package testutil

import (
	"github.com/netcmd/netcmd/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields via options or after creation as needed.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		ID:          42,
		Name:        "sw-access-01",
		Platform:    "cisco_ios",
		SiteID:      7,
		SiteName:    "dc-east",
		Status:      models.DeviceStatusActive,
		PrimaryIPv4: "10.0.0.1",
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithID sets the device inventory ID.
func WithID(id int) func(*models.Device) {
	return func(d *models.Device) { d.ID = id }
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithPlatform sets the device platform slug.
func WithPlatform(slug string) func(*models.Device) {
	return func(d *models.Device) { d.Platform = slug }
}

// WithPrimaryIP sets the device's primary IPv4 address.
func WithPrimaryIP(addr string) func(*models.Device) {
	return func(d *models.Device) { d.PrimaryIPv4 = addr }
}

// WithoutAddresses clears every address on the device, leaving it
// unreachable for management access.
func WithoutAddresses() func(*models.Device) {
	return func(d *models.Device) {
		d.PrimaryIPv4 = ""
		d.PrimaryIPv6 = ""
		for i := range d.Interfaces {
			d.Interfaces[i].IPs = nil
		}
	}
}

// WithStatus sets the device status.
func WithStatus(s models.DeviceStatus) func(*models.Device) {
	return func(d *models.Device) { d.Status = s }
}

// WithInterfaces sets the device's interface list.
func WithInterfaces(ifaces ...models.Interface) func(*models.Device) {
	return func(d *models.Device) { d.Interfaces = ifaces }
}

// WithVLANs sets the device's directly assigned VLANs.
func WithVLANs(vlans ...models.VLAN) func(*models.Device) {
	return func(d *models.Device) { d.VLANs = vlans }
}
