package netbox

import (
	"errors"
	"strings"

	"github.com/netcmd/netcmd/pkg/models"
)

// ErrNotFound is returned when a requested NetBox object does not exist.
var ErrNotFound = errors.New("netbox object not found")

// bareAddr strips the prefix length from a CIDR address ("10.0.0.1/24" -> "10.0.0.1").
func bareAddr(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// mapDevice assembles a models.Device from the NetBox device record, its
// interfaces, and its assigned IP addresses. Interface VLAN bindings
// (untagged and tagged) are flattened into the device's VLAN list.
func mapDevice(nb *NBDevice, ifaces []NBInterface, ips []NBIPAddress) *models.Device {
	d := &models.Device{
		ID:     nb.ID,
		Name:   nb.Name,
		Status: models.DeviceStatusUnknown,
	}
	if nb.Platform != nil {
		d.Platform = nb.Platform.Slug
	}
	if nb.Site != nil {
		d.SiteID = nb.Site.ID
		d.SiteName = nb.Site.Name
	}
	if nb.Status != nil {
		d.Status = models.DeviceStatus(nb.Status.Value)
	}
	if nb.PrimaryIP4 != nil {
		d.PrimaryIPv4 = bareAddr(nb.PrimaryIP4.Address)
	}
	if nb.PrimaryIP6 != nil {
		d.PrimaryIPv6 = bareAddr(nb.PrimaryIP6.Address)
	}

	// Group assigned IPs by interface ID.
	ipsByIface := make(map[int][]string)
	for _, ip := range ips {
		if ip.AssignedObjectID == 0 {
			continue
		}
		ipsByIface[ip.AssignedObjectID] = append(ipsByIface[ip.AssignedObjectID], bareAddr(ip.Address))
	}

	seenVIDs := make(map[int]bool)
	addVLAN := func(v NBVLAN) {
		if seenVIDs[v.VID] {
			return
		}
		seenVIDs[v.VID] = true
		d.VLANs = append(d.VLANs, models.VLAN{VID: v.VID, Name: v.Name})
	}

	for _, nbIf := range ifaces {
		iface := models.Interface{
			Name:    nbIf.Name,
			Enabled: nbIf.Enabled,
			IPs:     ipsByIface[nbIf.ID],
		}
		if nbIf.Type != nil {
			iface.Type = nbIf.Type.Value
		}
		d.Interfaces = append(d.Interfaces, iface)

		if nbIf.UntaggedVLAN != nil {
			addVLAN(*nbIf.UntaggedVLAN)
		}
		for _, v := range nbIf.TaggedVLANs {
			addVLAN(v)
		}
	}

	return d
}

// mapVLANs converts NetBox VLANs to the shared model.
func mapVLANs(nbVLANs []NBVLAN) []models.VLAN {
	vlans := make([]models.VLAN, 0, len(nbVLANs))
	for _, v := range nbVLANs {
		vlans = append(vlans, models.VLAN{VID: v.VID, Name: v.Name})
	}
	return vlans
}
