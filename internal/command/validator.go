package command

import (
	"fmt"
	"strconv"

	"github.com/netcmd/netcmd/pkg/models"
)

// ValidateValueForDevice checks a supplied value against live device
// data for typed variables. Free-text variables always pass. VLAN
// checks fall back to the site's VLANs when the device has none
// matching; the caller supplies those because the lookup may need an
// extra inventory call.
func ValidateValueForDevice(v *CommandVariable, value string, device *models.Device, siteVLANs []models.VLAN) error {
	if value == "" {
		return nil
	}

	switch v.VariableType {
	case VariableTypeText, "":
		return nil

	case VariableTypeInterface:
		if !device.HasInterface(value) {
			return fmt.Errorf("interface %q does not exist on device %s", value, device.Name)
		}
		return nil

	case VariableTypeVLAN:
		vid, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("VLAN id %q is not numeric", value)
		}
		if device.HasVLAN(vid) {
			return nil
		}
		for i := range siteVLANs {
			if siteVLANs[i].VID == vid {
				return nil
			}
		}
		return fmt.Errorf("VLAN %d is not available on device %s or its site", vid, device.Name)

	case VariableTypeIP:
		if !device.HasIP(value) {
			return fmt.Errorf("address %q is not assigned to device %s", value, device.Name)
		}
		return nil

	default:
		return fmt.Errorf("unknown variable type %q", v.VariableType)
	}
}
