package netbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", 5*time.Second)
}

func TestGetDevice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dcim/devices/42/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Token test-token" {
			t.Errorf("Authorization = %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 42,
			"name": "core-sw-01",
			"platform": {"id": 1, "name": "Cisco IOS", "slug": "cisco_ios"},
			"site": {"id": 7, "name": "DC1", "slug": "dc1"},
			"status": {"value": "active", "label": "Active"},
			"primary_ip4": {"id": 9, "address": "10.0.0.1/24"}
		}`))
	})

	dev, err := client.GetDevice(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if dev.Name != "core-sw-01" {
		t.Errorf("name = %q", dev.Name)
	}
	if dev.Platform == nil || dev.Platform.Slug != "cisco_ios" {
		t.Errorf("platform = %+v", dev.Platform)
	}
	if dev.Site == nil || dev.Site.ID != 7 {
		t.Errorf("site = %+v", dev.Site)
	}
	if dev.PrimaryIP4 == nil || dev.PrimaryIP4.Address != "10.0.0.1/24" {
		t.Errorf("primary_ip4 = %+v", dev.PrimaryIP4)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	})

	_, err := client.GetDevice(context.Background(), 999)
	if err == nil {
		t.Fatal("expected error for missing device")
	}
}

func TestListDeviceInterfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dcim/interfaces/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("device_id"); got != "42" {
			t.Errorf("device_id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"count": 2,
			"results": [
				{"id": 1, "name": "GigabitEthernet0/1", "enabled": true,
				 "untagged_vlan": {"id": 5, "vid": 100, "name": "users"}},
				{"id": 2, "name": "GigabitEthernet0/2", "enabled": false,
				 "tagged_vlans": [{"id": 6, "vid": 200, "name": "voice"}]}
			]
		}`))
	})

	ifaces, err := client.ListDeviceInterfaces(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListDeviceInterfaces: %v", err)
	}
	if len(ifaces) != 2 {
		t.Fatalf("len = %d, want 2", len(ifaces))
	}
	if ifaces[0].UntaggedVLAN == nil || ifaces[0].UntaggedVLAN.VID != 100 {
		t.Errorf("untagged vlan = %+v", ifaces[0].UntaggedVLAN)
	}
	if len(ifaces[1].TaggedVLANs) != 1 || ifaces[1].TaggedVLANs[0].VID != 200 {
		t.Errorf("tagged vlans = %+v", ifaces[1].TaggedVLANs)
	}
}

func TestListSiteVLANs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("site_id"); got != "7" {
			t.Errorf("site_id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count": 1, "results": [{"id": 3, "vid": 300, "name": "mgmt"}]}`))
	})

	vlans, err := client.ListSiteVLANs(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListSiteVLANs: %v", err)
	}
	if len(vlans) != 1 || vlans[0].VID != 300 {
		t.Errorf("vlans = %+v", vlans)
	}
}

func TestDoJSON_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "boom"}`))
	})

	_, err := client.ListDeviceIPs(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
