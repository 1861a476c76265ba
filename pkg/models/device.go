// Package models holds the shared data types passed between netcmd modules.
package models

// DeviceStatus represents the inventory state of a device.
type DeviceStatus string

const (
	DeviceStatusActive  DeviceStatus = "active"
	DeviceStatusPlanned DeviceStatus = "planned"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusUnknown DeviceStatus = "unknown"
)

// Device is the inventory view of a network device, resolved from NetBox.
// It carries exactly what command execution and variable validation need:
// platform for credential scoping and command applicability, addresses for
// reaching the device, and interfaces/VLANs/IPs for typed variable checks.
type Device struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Platform    string       `json:"platform"` // platform slug, e.g. "cisco_ios"
	SiteID      int          `json:"site_id,omitempty"`
	SiteName    string       `json:"site_name,omitempty"`
	Status      DeviceStatus `json:"status"`
	PrimaryIPv4 string       `json:"primary_ip4,omitempty"`
	PrimaryIPv6 string       `json:"primary_ip6,omitempty"`
	Interfaces  []Interface  `json:"interfaces,omitempty"`
	VLANs       []VLAN       `json:"vlans,omitempty"`
}

// Interface is a network interface on a device with its bound IP addresses.
type Interface struct {
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	Enabled bool     `json:"enabled"`
	IPs     []string `json:"ips,omitempty"` // bare addresses, no prefix length
}

// VLAN is a VLAN visible to a device, either directly assigned or
// inherited from its site.
type VLAN struct {
	VID  int    `json:"vid"`
	Name string `json:"name,omitempty"`
}

// ManagementAddr returns the best address for reaching the device:
// primary IPv4, then primary IPv6, then empty.
func (d *Device) ManagementAddr() string {
	if d.PrimaryIPv4 != "" {
		return d.PrimaryIPv4
	}
	return d.PrimaryIPv6
}

// HasInterface reports whether the device has an interface with the
// exact given name.
func (d *Device) HasInterface(name string) bool {
	for i := range d.Interfaces {
		if d.Interfaces[i].Name == name {
			return true
		}
	}
	return false
}

// HasVLAN reports whether the device has a directly assigned VLAN with
// the given VID. Site-level fallback is the caller's responsibility.
func (d *Device) HasVLAN(vid int) bool {
	for i := range d.VLANs {
		if d.VLANs[i].VID == vid {
			return true
		}
	}
	return false
}

// HasIP reports whether the address is bound to any interface or is one
// of the device's primary addresses.
func (d *Device) HasIP(addr string) bool {
	if addr == "" {
		return false
	}
	if d.PrimaryIPv4 == addr || d.PrimaryIPv6 == addr {
		return true
	}
	for i := range d.Interfaces {
		for _, ip := range d.Interfaces[i].IPs {
			if ip == addr {
				return true
			}
		}
	}
	return false
}
