package models

import "testing"

func testDevice() *Device {
	return &Device{
		ID:          42,
		Name:        "edge-sw-01",
		Platform:    "cisco_ios",
		PrimaryIPv4: "192.0.2.10",
		Interfaces: []Interface{
			{Name: "GigabitEthernet0/1", Enabled: true, IPs: []string{"192.0.2.10"}},
			{Name: "GigabitEthernet0/2", Enabled: true, IPs: []string{"198.51.100.4"}},
		},
		VLANs: []VLAN{{VID: 100, Name: "users"}, {VID: 200, Name: "voice"}},
	}
}

func TestManagementAddr(t *testing.T) {
	d := testDevice()
	if got := d.ManagementAddr(); got != "192.0.2.10" {
		t.Errorf("ManagementAddr() = %q, want %q", got, "192.0.2.10")
	}

	d.PrimaryIPv4 = ""
	d.PrimaryIPv6 = "2001:db8::1"
	if got := d.ManagementAddr(); got != "2001:db8::1" {
		t.Errorf("ManagementAddr() v6 fallback = %q, want %q", got, "2001:db8::1")
	}
}

func TestHasInterface(t *testing.T) {
	d := testDevice()
	if !d.HasInterface("GigabitEthernet0/1") {
		t.Error("expected interface GigabitEthernet0/1 to be found")
	}
	if d.HasInterface("GigabitEthernet0/48") {
		t.Error("did not expect interface GigabitEthernet0/48")
	}
	if d.HasInterface("gigabitethernet0/1") {
		t.Error("interface match must be exact, not case-insensitive")
	}
}

func TestHasVLAN(t *testing.T) {
	d := testDevice()
	if !d.HasVLAN(100) {
		t.Error("expected VLAN 100")
	}
	if d.HasVLAN(300) {
		t.Error("did not expect VLAN 300")
	}
}

func TestHasIP(t *testing.T) {
	d := testDevice()
	cases := []struct {
		addr string
		want bool
	}{
		{"192.0.2.10", true},   // primary + interface
		{"198.51.100.4", true}, // interface only
		{"203.0.113.9", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := d.HasIP(tc.addr); got != tc.want {
			t.Errorf("HasIP(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}
