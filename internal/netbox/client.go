// Package netbox provides the read-only NetBox inventory client.
// Devices, interfaces, IP addresses, and VLANs are fetched on demand and
// mapped into the shared models consumed by command validation and execution.
package netbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client wraps the NetBox REST API v4.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new NetBox API client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// GetDevice retrieves a single device by ID.
func (c *Client) GetDevice(ctx context.Context, id int) (*NBDevice, error) {
	path := fmt.Sprintf("/api/dcim/devices/%d/", id)
	var device NBDevice
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &device); err != nil {
		return nil, fmt.Errorf("get device %d: %w", id, err)
	}
	return &device, nil
}

// ListDeviceInterfaces retrieves all interfaces on a device, including
// their untagged and tagged VLAN bindings.
func (c *Client) ListDeviceInterfaces(ctx context.Context, deviceID int) ([]NBInterface, error) {
	path := fmt.Sprintf("/api/dcim/interfaces/?device_id=%d&limit=1000", deviceID)
	var resp ListResponse[NBInterface]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list interfaces for device %d: %w", deviceID, err)
	}
	return resp.Results, nil
}

// ListDeviceIPs retrieves all IP addresses assigned to a device's interfaces.
func (c *Client) ListDeviceIPs(ctx context.Context, deviceID int) ([]NBIPAddress, error) {
	path := fmt.Sprintf("/api/ipam/ip-addresses/?device_id=%d&limit=1000", deviceID)
	var resp ListResponse[NBIPAddress]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list ip addresses for device %d: %w", deviceID, err)
	}
	return resp.Results, nil
}

// ListSiteVLANs retrieves all VLANs defined for a site.
func (c *Client) ListSiteVLANs(ctx context.Context, siteID int) ([]NBVLAN, error) {
	path := fmt.Sprintf("/api/ipam/vlans/?site_id=%d&limit=1000", siteID)
	var resp ListResponse[NBVLAN]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list vlans for site %d: %w", siteID, err)
	}
	return resp.Results, nil
}

// doJSON performs an HTTP request with JSON serialization/deserialization.
func (c *Client) doJSON(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("netbox API %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
