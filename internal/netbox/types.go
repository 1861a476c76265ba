package netbox

// NetBox API response types.
// These mirror the NetBox v4 REST API entity shapes read by the inventory client.

// NBStatusValue represents a NetBox status choice (value + label).
type NBStatusValue struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// NBTypeVal represents a NetBox type choice (value + label).
type NBTypeVal struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// NBSite represents a NetBox site (data center / location).
type NBSite struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NBPlatform represents a NetBox platform (OS family).
type NBPlatform struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NBIPRef is an embedded IP address reference on a device.
type NBIPRef struct {
	ID      int    `json:"id"`
	Address string `json:"address"` // CIDR notation, e.g. "10.0.0.1/24"
}

// NBDevice represents a NetBox device entity.
type NBDevice struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Platform   *NBPlatform    `json:"platform,omitempty"`
	Site       *NBSite        `json:"site,omitempty"`
	Status     *NBStatusValue `json:"status,omitempty"`
	PrimaryIP4 *NBIPRef       `json:"primary_ip4,omitempty"`
	PrimaryIP6 *NBIPRef       `json:"primary_ip6,omitempty"`
}

// NBVLAN represents a NetBox VLAN.
type NBVLAN struct {
	ID   int    `json:"id"`
	VID  int    `json:"vid"`
	Name string `json:"name"`
}

// NBInterface represents a NetBox device interface with its VLAN bindings.
type NBInterface struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Type         *NBTypeVal `json:"type,omitempty"`
	Enabled      bool       `json:"enabled"`
	UntaggedVLAN *NBVLAN    `json:"untagged_vlan,omitempty"`
	TaggedVLANs  []NBVLAN   `json:"tagged_vlans,omitempty"`
}

// NBIPAddress represents a NetBox IP address assignment.
type NBIPAddress struct {
	ID                 int    `json:"id"`
	Address            string `json:"address"`
	AssignedObjectType string `json:"assigned_object_type,omitempty"`
	AssignedObjectID   int    `json:"assigned_object_id,omitempty"`
}

// ListResponse is the generic paginated response from NetBox list endpoints.
type ListResponse[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}
