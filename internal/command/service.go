package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/connector"
	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/roles"
)

// Service-level sentinel errors, mapped to HTTP statuses by the handler.
var (
	ErrForbidden   = errors.New("config commands require the admin role")
	ErrRateLimited = errors.New("device execution rate limit exceeded")
	ErrUnreachable = errors.New("device has no management address")
)

// ValidationError marks a request rejected for a reason the caller can
// correct. The handler maps it to 400; unrecognized errors are treated
// as internal faults.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Executor runs a prepared command on a device. Satisfied by
// connector.SSHConnector.
type Executor interface {
	Execute(ctx context.Context, host string, creds connector.Credentials, command string) (*connector.Result, error)
}

// Caller identifies the requesting user for permission gating and
// audit logging.
type Caller struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// Service runs the command execution pipeline: template preparation,
// device-data validation, credential resolution, rate limiting,
// execution, and logging.
type Service struct {
	store       *Store
	inventory   roles.InventoryProvider
	credentials roles.CredentialResolver
	executor    Executor
	limiter     *deviceLimiter
	cfg         Config
	logger      *zap.Logger
	events      EventPublisher
}

// NewService builds the command service.
func NewService(store *Store, inventory roles.InventoryProvider, credentials roles.CredentialResolver,
	executor Executor, cfg Config, logger *zap.Logger, events EventPublisher) *Service {
	return &Service{
		store:       store,
		inventory:   inventory,
		credentials: credentials,
		executor:    executor,
		limiter:     newDeviceLimiter(cfg.DeviceRateLimit, cfg.DeviceRateWindow),
		cfg:         cfg,
		logger:      logger,
		events:      events,
	}
}

// Create validates and stores a new command template.
func (s *Service) Create(ctx context.Context, cmd *Command) error {
	if err := s.validateCommand(cmd); err != nil {
		return err
	}
	cmd.ID = uuid.New().String()
	now := time.Now().UTC()
	cmd.CreatedAt, cmd.UpdatedAt = now, now

	if err := s.store.CreateCommand(ctx, cmd); err != nil {
		return err
	}
	s.events.Publish(ctx, EventCommandCreated, map[string]string{"id": cmd.ID, "name": cmd.Name})
	return nil
}

// Update validates and rewrites an existing command template.
func (s *Service) Update(ctx context.Context, cmd *Command) error {
	if err := s.validateCommand(cmd); err != nil {
		return err
	}
	cmd.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateCommand(ctx, cmd); err != nil {
		return err
	}
	s.events.Publish(ctx, EventCommandUpdated, map[string]string{"id": cmd.ID, "name": cmd.Name})
	return nil
}

// Delete removes a command; its variables cascade, its logs remain.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCommand(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, EventCommandDeleted, map[string]string{"id": id})
	return nil
}

// Get returns one command with its variables.
func (s *Service) Get(ctx context.Context, id string) (*Command, error) {
	return s.store.GetCommand(ctx, id)
}

// List returns all commands.
func (s *Service) List(ctx context.Context) ([]Command, error) {
	return s.store.ListCommands(ctx)
}

// Logs returns execution records.
func (s *Service) Logs(ctx context.Context, filter LogFilter) ([]CommandLog, error) {
	return s.store.ListLogs(ctx, filter)
}

// Execute runs a command on one device.
func (s *Service) Execute(ctx context.Context, caller Caller, commandID string, req ExecuteRequest) (*ExecuteResult, error) {
	cmd, err := s.store.GetCommand(ctx, commandID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(cmd, caller); err != nil {
		return nil, err
	}
	return s.executeOnDevice(ctx, caller, cmd, req.DeviceID, req.AccessToken, req.Values)
}

// BulkExecute runs a command across several devices with shared values.
// Devices are processed in request order; one device failing does not
// stop the rest.
func (s *Service) BulkExecute(ctx context.Context, caller Caller, commandID string, req BulkExecuteRequest) (*BulkExecuteResult, error) {
	if len(req.DeviceIDs) == 0 {
		return nil, ValidationError("device_ids is required")
	}
	if len(req.DeviceIDs) > s.cfg.BulkMaxDevices {
		return nil, ValidationError(fmt.Sprintf("bulk execution is limited to %d devices", s.cfg.BulkMaxDevices))
	}

	cmd, err := s.store.GetCommand(ctx, commandID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(cmd, caller); err != nil {
		return nil, err
	}

	out := &BulkExecuteResult{Results: make([]ExecuteResult, 0, len(req.DeviceIDs))}
	for _, deviceID := range req.DeviceIDs {
		res, err := s.executeOnDevice(ctx, caller, cmd, deviceID, req.AccessToken, req.Values)
		if err != nil {
			res = &ExecuteResult{DeviceID: deviceID, Success: false, Error: err.Error()}
		}
		out.Results = append(out.Results, *res)
		if res.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

// Validate resolves and checks variable values against a device without
// executing anything.
func (s *Service) Validate(ctx context.Context, commandID string, deviceID int, values map[string]string) (*PreparedCommand, error) {
	cmd, err := s.store.GetCommand(ctx, commandID)
	if err != nil {
		return nil, err
	}
	device, err := s.inventory.DeviceByID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("lookup device %d: %w", deviceID, err)
	}
	prep := s.prepareForDevice(ctx, cmd, device, values)
	return &prep, nil
}

// Choices returns the valid values of each typed variable of a command
// for one device.
func (s *Service) Choices(ctx context.Context, commandID string, deviceID int) (*VariableChoices, error) {
	cmd, err := s.store.GetCommand(ctx, commandID)
	if err != nil {
		return nil, err
	}
	device, err := s.inventory.DeviceByID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("lookup device %d: %w", deviceID, err)
	}

	choices := make(map[string][]string)
	var siteVLANs []models.VLAN
	var siteLoaded bool

	for i := range cmd.Variables {
		v := &cmd.Variables[i]
		switch v.VariableType {
		case VariableTypeInterface:
			names := make([]string, 0, len(device.Interfaces))
			for j := range device.Interfaces {
				names = append(names, device.Interfaces[j].Name)
			}
			choices[v.Name] = names

		case VariableTypeVLAN:
			vids := make([]string, 0, len(device.VLANs))
			seen := make(map[int]bool)
			for j := range device.VLANs {
				seen[device.VLANs[j].VID] = true
				vids = append(vids, strconv.Itoa(device.VLANs[j].VID))
			}
			if !siteLoaded && device.SiteID != 0 {
				siteVLANs, _ = s.inventory.SiteVLANs(ctx, device.SiteID)
				siteLoaded = true
			}
			for j := range siteVLANs {
				if !seen[siteVLANs[j].VID] {
					seen[siteVLANs[j].VID] = true
					vids = append(vids, strconv.Itoa(siteVLANs[j].VID))
				}
			}
			choices[v.Name] = vids

		case VariableTypeIP:
			var ips []string
			if device.PrimaryIPv4 != "" {
				ips = append(ips, device.PrimaryIPv4)
			}
			if device.PrimaryIPv6 != "" {
				ips = append(ips, device.PrimaryIPv6)
			}
			for j := range device.Interfaces {
				for _, ip := range device.Interfaces[j].IPs {
					if !slices.Contains(ips, ip) {
						ips = append(ips, ip)
					}
				}
			}
			choices[v.Name] = ips
		}
	}
	return &VariableChoices{DeviceID: deviceID, Choices: choices}, nil
}

func (s *Service) executeOnDevice(ctx context.Context, caller Caller, cmd *Command, deviceID int, token string, values map[string]string) (*ExecuteResult, error) {
	device, err := s.inventory.DeviceByID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("lookup device %d: %w", deviceID, err)
	}

	if len(cmd.Platforms) > 0 && !slices.Contains(cmd.Platforms, strings.ToLower(device.Platform)) {
		return nil, ValidationError(fmt.Sprintf("command %q does not support platform %q", cmd.Name, device.Platform))
	}

	prep := s.prepareForDevice(ctx, cmd, device, values)
	if !prep.IsValid {
		return &ExecuteResult{
			DeviceID:       device.ID,
			DeviceName:     device.Name,
			Success:        false,
			Error:          "variable validation failed",
			VariableErrors: prep.Errors,
		}, nil
	}

	if !s.limiter.Allow(device.ID) {
		return nil, fmt.Errorf("%w: device %s", ErrRateLimited, device.Name)
	}

	creds, err := s.credentials.ResolveForDevice(ctx, token, caller.UserID, device)
	if err != nil {
		return nil, err
	}

	host := device.ManagementAddr()
	if host == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, device.Name)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecutionTimeout)
	defer cancel()

	start := time.Now()
	res, execErr := s.executor.Execute(execCtx, host, connector.Credentials{
		Username: creds.Username,
		Password: creds.Password,
	}, prep.Text)
	duration := time.Since(start)

	result := &ExecuteResult{
		DeviceID:        device.ID,
		DeviceName:      device.Name,
		Command:         prep.Text,
		Success:         execErr == nil,
		DurationSeconds: duration.Seconds(),
	}
	log := &CommandLog{
		CommandID:       cmd.ID,
		CommandName:     cmd.Name,
		DeviceID:        device.ID,
		DeviceName:      device.Name,
		Username:        caller.Username,
		Success:         execErr == nil,
		DurationSeconds: duration.Seconds(),
	}
	if execErr != nil {
		result.Error = execErr.Error()
		log.ErrorMessage = execErr.Error()
	} else {
		result.Output = res.Output
		log.Output = res.Output
	}

	if err := s.store.InsertLog(ctx, log); err != nil {
		s.logger.Error("failed to write command log", zap.Error(err))
	}
	observeExecution(string(cmd.CommandType), execErr == nil, duration)

	if execErr == nil {
		// The credentials demonstrably worked.
		if err := s.credentials.MarkUsed(ctx, creds.CredentialSetID); err != nil {
			s.logger.Warn("failed to record credential use", zap.Error(err))
		}
	}

	s.events.Publish(ctx, EventExecutionCompleted, map[string]any{
		"command_id": cmd.ID,
		"device_id":  device.ID,
		"success":    execErr == nil,
	})
	s.logger.Info("command executed",
		zap.String("command", cmd.Name),
		zap.String("device", device.Name),
		zap.Bool("success", execErr == nil),
		zap.Duration("duration", duration))
	return result, nil
}

// prepareForDevice resolves values, validates typed variables against
// live device data, and substitutes. Type checks run on the resolved
// value (supplied or default) before substitution.
func (s *Service) prepareForDevice(ctx context.Context, cmd *Command, device *models.Device, values map[string]string) PreparedCommand {
	var siteVLANs []models.VLAN
	var siteLoaded bool

	typeErrors := make(map[string]string)
	for i := range cmd.Variables {
		v := &cmd.Variables[i]
		value, ok := values[v.Name]
		if !ok || value == "" {
			value = v.DefaultValue
		}
		if value == "" {
			continue
		}

		if v.VariableType == VariableTypeVLAN && !siteLoaded && device.SiteID != 0 {
			var err error
			siteVLANs, err = s.inventory.SiteVLANs(ctx, device.SiteID)
			if err != nil {
				s.logger.Warn("site VLAN lookup failed", zap.Int("site_id", device.SiteID), zap.Error(err))
			}
			siteLoaded = true
		}

		if err := ValidateValueForDevice(v, value, device, siteVLANs); err != nil {
			typeErrors[v.Name] = err.Error()
		}
	}

	prep := PrepareCommandForExecution(cmd, values)
	if len(typeErrors) > 0 {
		if prep.Errors == nil {
			prep.Errors = typeErrors
		} else {
			for name, msg := range typeErrors {
				if _, conflict := prep.Errors[name]; !conflict {
					prep.Errors[name] = msg
				}
			}
		}
		prep.IsValid = false
	}
	return prep
}

func (s *Service) gate(cmd *Command, caller Caller) error {
	if cmd.CommandType == CommandTypeConfig && !caller.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// normalizePlatforms lowercases and dedupes platform slugs so the
// applicability check can compare them case-insensitively.
func normalizePlatforms(platforms []string) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) validateCommand(cmd *Command) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Name == "" {
		return ValidationError("name is required")
	}
	if strings.TrimSpace(cmd.CommandText) == "" {
		return ValidationError("command_text is required")
	}
	if cmd.CommandType == "" {
		cmd.CommandType = CommandTypeShow
	}
	if !cmd.CommandType.Valid() {
		return ValidationError(fmt.Sprintf("invalid command_type %q", cmd.CommandType))
	}
	cmd.Platforms = normalizePlatforms(cmd.Platforms)
	for i := range cmd.Variables {
		if !cmd.Variables[i].VariableType.Valid() && cmd.Variables[i].VariableType != "" {
			return ValidationError(fmt.Sprintf("invalid variable_type %q", cmd.Variables[i].VariableType))
		}
		if cmd.Variables[i].VariableType == "" {
			cmd.Variables[i].VariableType = VariableTypeText
		}
	}

	missing, err := ValidateVariables(cmd)
	if err != nil {
		return ValidationError(err.Error())
	}
	if len(missing) > 0 {
		return ValidationError("placeholders without variable definitions: " + strings.Join(missing, ", "))
	}
	return nil
}
