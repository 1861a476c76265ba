package command

import (
	"testing"

	"github.com/netcmd/netcmd/internal/testutil"
	"github.com/netcmd/netcmd/pkg/models"
)

func testDevice() *models.Device {
	d := testutil.NewDevice(
		testutil.WithInterfaces(
			models.Interface{Name: "GigabitEthernet0/1", Enabled: true, IPs: []string{"192.168.1.1"}},
			models.Interface{Name: "Vlan100", Enabled: true},
		),
		testutil.WithVLANs(models.VLAN{VID: 100, Name: "users"}),
	)
	return &d
}

func TestValidateValueForDevice(t *testing.T) {
	device := testDevice()
	siteVLANs := []models.VLAN{{VID: 200, Name: "servers"}}

	cases := []struct {
		name  string
		vtype VariableType
		value string
		ok    bool
	}{
		{"text passes anything", VariableTypeText, "whatever <thing>", true},
		{"known interface", VariableTypeInterface, "GigabitEthernet0/1", true},
		{"unknown interface", VariableTypeInterface, "GigabitEthernet0/9", false},
		{"interface is case sensitive", VariableTypeInterface, "gigabitethernet0/1", false},
		{"device vlan", VariableTypeVLAN, "100", true},
		{"site vlan fallback", VariableTypeVLAN, "200", false},
		{"unknown vlan", VariableTypeVLAN, "999", false},
		{"non-numeric vlan", VariableTypeVLAN, "users", false},
		{"interface ip", VariableTypeIP, "192.168.1.1", true},
		{"primary ip", VariableTypeIP, "10.0.0.1", true},
		{"unknown ip", VariableTypeIP, "172.16.0.1", false},
		{"empty value skips check", VariableTypeInterface, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &CommandVariable{Name: "x", VariableType: tc.vtype}
			var fallback []models.VLAN
			if tc.name == "site vlan fallback" {
				// Without site VLANs the device-only check fails.
				if err := ValidateValueForDevice(v, tc.value, device, nil); err == nil {
					t.Fatal("vlan 200 should fail without site fallback")
				}
				fallback = siteVLANs
				if err := ValidateValueForDevice(v, tc.value, device, fallback); err != nil {
					t.Fatalf("vlan 200 should pass with site fallback: %v", err)
				}
				return
			}
			err := ValidateValueForDevice(v, tc.value, device, nil)
			if tc.ok && err != nil {
				t.Errorf("got error %v, want nil", err)
			}
			if !tc.ok && err == nil {
				t.Error("got nil, want error")
			}
		})
	}
}
