package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/internal/connector"
	"github.com/netcmd/netcmd/internal/store"
	"github.com/netcmd/netcmd/pkg/models"
	"github.com/netcmd/netcmd/pkg/roles"
)

type fakeInventory struct {
	devices   map[int]*models.Device
	siteVLANs []models.VLAN
}

func (f *fakeInventory) DeviceByID(_ context.Context, id int) (*models.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, errors.New("device not found")
	}
	return d, nil
}

func (f *fakeInventory) SiteVLANs(context.Context, int) ([]models.VLAN, error) {
	return f.siteVLANs, nil
}

type fakeResolver struct {
	err    error
	marked []string
}

func (f *fakeResolver) ResolveForDevice(_ context.Context, _, _ string, _ *models.Device) (*roles.DeviceCredentials, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &roles.DeviceCredentials{CredentialSetID: "cs-1", Username: "admin", Password: "pw"}, nil
}

func (f *fakeResolver) MarkUsed(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

type fakeExecutor struct {
	err      error
	output   string
	commands []string
}

func (f *fakeExecutor) Execute(_ context.Context, _ string, _ connector.Credentials, command string) (*connector.Result, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return nil, f.err
	}
	return &connector.Result{Output: f.output, Duration: 10 * time.Millisecond}, nil
}

type testEnv struct {
	svc      *Service
	store    *Store
	resolver *fakeResolver
	executor *fakeExecutor
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cs, err := NewStore(context.Background(), st)
	if err != nil {
		t.Fatalf("command store: %v", err)
	}

	inv := &fakeInventory{
		devices:   map[int]*models.Device{42: testDevice()},
		siteVLANs: []models.VLAN{{VID: 200, Name: "servers"}},
	}
	resolver := &fakeResolver{}
	executor := &fakeExecutor{output: "PING OK"}

	return &testEnv{
		svc:      NewService(cs, inv, resolver, executor, cfg, zap.NewNop(), nopPublisher{}),
		store:    cs,
		resolver: resolver,
		executor: executor,
	}
}

func pingCommand() *Command {
	return &Command{
		Name:        "ping",
		CommandText: "ping <target> source <iface>",
		CommandType: CommandTypeShow,
		Variables: []CommandVariable{
			{Name: "target", VariableType: VariableTypeText, Required: true},
			{Name: "iface", VariableType: VariableTypeInterface, Required: true},
		},
	}
}

func TestCreateRejectsUndeclaredPlaceholder(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	cmd := &Command{Name: "bad", CommandText: "ping <target>", CommandType: CommandTypeShow}
	if err := env.svc.Create(context.Background(), cmd); err == nil {
		t.Error("placeholder without a definition should be rejected at save time")
	}
}

func TestCreateRejectsMalformedPlaceholder(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	cmd := &Command{Name: "bad", CommandText: "show <bad-name>", CommandType: CommandTypeShow}
	if err := env.svc.Create(context.Background(), cmd); err == nil {
		t.Error("malformed placeholder should be rejected at save time")
	}
}

func TestCommandCRUD(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := pingCommand()
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := env.svc.Get(ctx, cmd.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Variables) != 2 || got.Variables[0].Name != "target" {
		t.Errorf("variables = %+v", got.Variables)
	}

	got.Description = "reachability check"
	got.Variables = got.Variables[:1]
	got.CommandText = "ping <target>"
	if err := env.svc.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := env.svc.Get(ctx, cmd.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Variables) != 1 {
		t.Errorf("variable replacement left %d variables", len(updated.Variables))
	}

	if err := env.svc.Delete(ctx, cmd.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.svc.Get(ctx, cmd.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestExecuteHappyPath(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := pingCommand()
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.Execute(ctx, Caller{UserID: "u1", Username: "alice"}, cmd.ID, ExecuteRequest{
		DeviceID:    42,
		AccessToken: "token",
		Values:      map[string]string{"target": "8.8.8.8", "iface": "GigabitEthernet0/1"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Output != "PING OK" {
		t.Errorf("result = %+v", res)
	}
	if res.Command != "ping 8.8.8.8 source GigabitEthernet0/1" {
		t.Errorf("substituted command = %q", res.Command)
	}

	if len(env.resolver.marked) != 1 || env.resolver.marked[0] != "cs-1" {
		t.Errorf("MarkUsed calls = %v, want one for cs-1", env.resolver.marked)
	}

	logs, err := env.svc.Logs(ctx, LogFilter{CommandID: cmd.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || !logs[0].Success || logs[0].Username != "alice" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestExecuteValidationFailureDoesNotRunOrMark(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := pingCommand()
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, ExecuteRequest{
		DeviceID:    42,
		AccessToken: "token",
		Values:      map[string]string{"target": "8.8.8.8", "iface": "NoSuchInterface"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("validation failure should not succeed")
	}
	if _, ok := res.VariableErrors["iface"]; !ok {
		t.Errorf("VariableErrors = %v", res.VariableErrors)
	}
	if len(env.executor.commands) != 0 {
		t.Error("nothing should have been executed")
	}
	if len(env.resolver.marked) != 0 {
		t.Error("MarkUsed should not be called on validation failure")
	}
}

func TestExecuteFailureIsLoggedWithoutMarkUsed(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.executor.err = errors.New("connection refused")
	ctx := context.Background()

	cmd := pingCommand()
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, ExecuteRequest{
		DeviceID:    42,
		AccessToken: "token",
		Values:      map[string]string{"target": "8.8.8.8", "iface": "GigabitEthernet0/1"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("executor failure should be reported as unsuccessful")
	}
	if len(env.resolver.marked) != 0 {
		t.Error("MarkUsed must not run after a failed execution")
	}

	logs, _ := env.svc.Logs(ctx, LogFilter{CommandID: cmd.ID})
	if len(logs) != 1 || logs[0].Success || logs[0].ErrorMessage == "" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestExecuteConfigRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := &Command{Name: "write", CommandText: "write memory", CommandType: CommandTypeConfig}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, ExecuteRequest{DeviceID: 42, AccessToken: "t"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin config execute = %v, want ErrForbidden", err)
	}

	if _, err := env.svc.Execute(ctx, Caller{UserID: "u1", IsAdmin: true}, cmd.ID,
		ExecuteRequest{DeviceID: 42, AccessToken: "t"}); err != nil {
		t.Errorf("admin config execute failed: %v", err)
	}
}

func TestExecutePlatformGate(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := &Command{Name: "junos only", CommandText: "show config", CommandType: CommandTypeShow,
		Platforms: []string{"juniper_junos"}}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, ExecuteRequest{DeviceID: 42, AccessToken: "t"})
	if err == nil {
		t.Error("platform mismatch should block execution")
	}
}

func TestExecutePlatformGateIgnoresSlugCase(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	// NetBox permits uppercase in platform slugs.
	device := testDevice()
	device.Platform = "Cisco_IOS"
	env.svc.inventory = &fakeInventory{devices: map[int]*models.Device{42: device}}

	cmd := &Command{Name: "ios ver", CommandText: "show version", CommandType: CommandTypeShow,
		Platforms: []string{"Cisco_IOS"}}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, ExecuteRequest{DeviceID: 42, AccessToken: "t"})
	if err != nil {
		t.Fatalf("mixed-case platform should be accepted: %v", err)
	}
	if !res.Success {
		t.Errorf("execution failed: %s", res.Error)
	}
}

func TestExecuteRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceRateLimit = 1
	cfg.DeviceRateWindow = time.Hour
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	cmd := &Command{Name: "ver", CommandText: "show version", CommandType: CommandTypeShow}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	req := ExecuteRequest{DeviceID: 42, AccessToken: "t"}
	if _, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, req); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if _, err := env.svc.Execute(ctx, Caller{UserID: "u1"}, cmd.ID, req); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second execute = %v, want ErrRateLimited", err)
	}
}

func TestBulkExecuteIsolation(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := &Command{Name: "ver", CommandText: "show version", CommandType: CommandTypeShow}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	out, err := env.svc.BulkExecute(ctx, Caller{UserID: "u1"}, cmd.ID, BulkExecuteRequest{
		DeviceIDs:   []int{42, 999, 42},
		AccessToken: "t",
	})
	if err != nil {
		t.Fatalf("BulkExecute: %v", err)
	}
	if len(out.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(out.Results))
	}
	if !out.Results[0].Success || out.Results[1].Success || !out.Results[2].Success {
		t.Errorf("per-item outcomes = %+v", out.Results)
	}
	if out.Succeeded != 2 || out.Failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", out.Succeeded, out.Failed)
	}
}

func TestBulkExecuteDeviceCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BulkMaxDevices = 2
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	cmd := &Command{Name: "ver", CommandText: "show version", CommandType: CommandTypeShow}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.BulkExecute(ctx, Caller{UserID: "u1"}, cmd.ID, BulkExecuteRequest{
		DeviceIDs:   []int{1, 2, 3},
		AccessToken: "t",
	})
	if err == nil {
		t.Error("exceeding the bulk device cap should fail")
	}
}

func TestChoices(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	cmd := &Command{
		Name:        "vlan iface",
		CommandText: "show vlan <vid> interface <iface> ip <addr>",
		CommandType: CommandTypeShow,
		Variables: []CommandVariable{
			{Name: "vid", VariableType: VariableTypeVLAN},
			{Name: "iface", VariableType: VariableTypeInterface},
			{Name: "addr", VariableType: VariableTypeIP},
		},
	}
	if err := env.svc.Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	choices, err := env.svc.Choices(ctx, cmd.ID, 42)
	if err != nil {
		t.Fatalf("Choices: %v", err)
	}

	// Device VLAN 100 plus site VLAN 200 fallback.
	if got := choices.Choices["vid"]; len(got) != 2 || got[0] != "100" || got[1] != "200" {
		t.Errorf("vid choices = %v", got)
	}
	if got := choices.Choices["iface"]; len(got) != 2 || got[0] != "GigabitEthernet0/1" {
		t.Errorf("iface choices = %v", got)
	}
	if got := choices.Choices["addr"]; len(got) != 2 || got[0] != "10.0.0.1" {
		t.Errorf("addr choices = %v", got)
	}
}
