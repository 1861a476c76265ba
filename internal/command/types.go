package command

import "time"

// CommandType distinguishes read-only show commands from
// configuration-changing ones. Config commands require the admin role.
type CommandType string

const (
	CommandTypeShow   CommandType = "show"
	CommandTypeConfig CommandType = "config"
)

// Valid reports whether the command type is a known value.
func (t CommandType) Valid() bool {
	return t == CommandTypeShow || t == CommandTypeConfig
}

// VariableType describes how a placeholder value is validated before
// substitution. Text values pass through; netbox_* values are checked
// against live device inventory data.
type VariableType string

const (
	VariableTypeText      VariableType = "text"
	VariableTypeInterface VariableType = "netbox_interface"
	VariableTypeVLAN      VariableType = "netbox_vlan"
	VariableTypeIP        VariableType = "netbox_ip"
)

// Valid reports whether the variable type is a known value.
func (t VariableType) Valid() bool {
	switch t {
	case VariableTypeText, VariableTypeInterface, VariableTypeVLAN, VariableTypeIP:
		return true
	}
	return false
}

// Command is a reusable command template with <name> placeholders.
type Command struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CommandText string            `json:"command_text"`
	Description string            `json:"description,omitempty"`
	CommandType CommandType       `json:"command_type"`
	Platforms   []string          `json:"platforms,omitempty"`
	Variables   []CommandVariable `json:"variables,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CommandVariable declares one placeholder of a command template.
type CommandVariable struct {
	ID           string       `json:"id"`
	CommandID    string       `json:"command_id"`
	Name         string       `json:"name"`
	Label        string       `json:"label,omitempty"`
	VariableType VariableType `json:"variable_type"`
	Required     bool         `json:"required"`
	HelpText     string       `json:"help_text,omitempty"`
	DefaultValue string       `json:"default_value,omitempty"`
}

// CommandLog is one execution record. Logs are append-only; there is no
// update path.
type CommandLog struct {
	ID              string    `json:"id"`
	CommandID       string    `json:"command_id"`
	CommandName     string    `json:"command_name"`
	DeviceID        int       `json:"device_id"`
	DeviceName      string    `json:"device_name"`
	Username        string    `json:"username"`
	Output          string    `json:"output,omitempty"`
	Success         bool      `json:"success"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// ExecuteRequest is the payload for running a command on one device.
type ExecuteRequest struct {
	DeviceID    int               `json:"device_id"`
	AccessToken string            `json:"access_token"`
	Values      map[string]string `json:"values,omitempty"`
}

// ExecuteResult is the outcome of one execution.
type ExecuteResult struct {
	DeviceID        int               `json:"device_id"`
	DeviceName      string            `json:"device_name,omitempty"`
	Command         string            `json:"command,omitempty"`
	Output          string            `json:"output,omitempty"`
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	VariableErrors  map[string]string `json:"variable_errors,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
}

// BulkExecuteRequest runs one command across several devices with
// shared variable values.
type BulkExecuteRequest struct {
	DeviceIDs   []int             `json:"device_ids"`
	AccessToken string            `json:"access_token"`
	Values      map[string]string `json:"values,omitempty"`
}

// BulkExecuteResult aggregates per-device outcomes in request order.
type BulkExecuteResult struct {
	Results   []ExecuteResult `json:"results"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// VariableChoices lists the valid values for each typed variable of a
// command on one device.
type VariableChoices struct {
	DeviceID int                 `json:"device_id"`
	Choices  map[string][]string `json:"choices"`
}
