package core

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/relaycore/internal/auth"
	"github.com/nerrad567/relaycore/internal/device"
	"github.com/nerrad567/relaycore/internal/hardware"
	"github.com/nerrad567/relaycore/internal/storage"
)

// serviceFixture wires a full service over in-memory backing, with the
// default admin plus an operator (allowed channel 1) and a viewer.
type serviceFixture struct {
	service  *Service
	sessions *auth.Sessions
	registry *device.Registry
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	blobs := storage.NewMemory()
	pins := hardware.NewMemory()

	users := auth.NewStore(blobs, nil)
	if err := users.Load(ctx); err != nil {
		t.Fatalf("users.Load() error = %v", err)
	}
	if err := users.Add(ctx, "operator", "op-pass", auth.RoleOperator, []int{1}); err != nil {
		t.Fatalf("Add(operator) error = %v", err)
	}
	if err := users.Add(ctx, "viewer", "view-pass", auth.RoleViewer, nil); err != nil {
		t.Fatalf("Add(viewer) error = %v", err)
	}

	registry := device.NewRegistry(blobs, pins, nil)
	if err := registry.Load(ctx); err != nil {
		t.Fatalf("registry.Load() error = %v", err)
	}
	if err := registry.SetupPins(); err != nil {
		t.Fatalf("SetupPins() error = %v", err)
	}

	sessions := auth.NewSessions()
	gate := auth.NewGate(sessions, users)

	return &serviceFixture{
		service:  New(users, sessions, gate, registry, nil),
		sessions: sessions,
		registry: registry,
	}
}

// login is a test helper returning a live token for username.
func (f *serviceFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	token, err := f.service.Login(username, password)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", username, err)
	}
	return token
}

func TestService_FirstBootAdminLogin(t *testing.T) {
	f := newFixture(t)

	token := f.login(t, auth.DefaultAdminUsername, auth.DefaultAdminPassword)
	if len(token) != auth.TokenLength {
		t.Errorf("token length = %d, want %d", len(token), auth.TokenLength)
	}

	user, err := f.service.SessionUser(token)
	if err != nil {
		t.Fatalf("SessionUser() error = %v", err)
	}
	if user.Username != auth.DefaultAdminUsername || user.Role != auth.RoleAdmin {
		t.Errorf("SessionUser() = %+v", user)
	}
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Login("admin", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := f.service.Login("ghost", "whatever"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	f := newFixture(t)

	token := f.login(t, "viewer", "view-pass")
	f.service.Logout(token)

	if _, err := f.service.ListDevices(token); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("after logout: err = %v, want ErrUnauthenticated", err)
	}

	// Idempotent.
	f.service.Logout(token)
}

func TestService_ListDevicesAnnotatesControl(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		username   string
		password   string
		canControl map[int]bool
	}{
		{"admin", "admin123", map[int]bool{0: true, 1: true, 2: true, 3: true}},
		{"operator", "op-pass", map[int]bool{0: false, 1: true, 2: false, 3: false}},
		{"viewer", "view-pass", map[int]bool{0: false, 1: false, 2: false, 3: false}},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			token := f.login(t, tt.username, tt.password)
			devices, err := f.service.ListDevices(token)
			if err != nil {
				t.Fatalf("ListDevices() error = %v", err)
			}
			if len(devices) != 4 {
				t.Fatalf("ListDevices() returned %d devices", len(devices))
			}
			for _, d := range devices {
				if d.CanControl != tt.canControl[d.Channel] {
					t.Errorf("channel %d CanControl = %v, want %v", d.Channel, d.CanControl, tt.canControl[d.Channel])
				}
			}
		})
	}
}

func TestService_ListDevicesRequiresSession(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.ListDevices(""); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("empty token: err = %v, want ErrUnauthenticated", err)
	}
}

func TestService_SetDeviceState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminToken := f.login(t, "admin", "admin123")
	operatorToken := f.login(t, "operator", "op-pass")
	viewerToken := f.login(t, "viewer", "view-pass")

	// Admin controls anything.
	state, err := f.service.SetDeviceState(ctx, adminToken, 0, device.Explicit(true))
	if err != nil || !state {
		t.Errorf("admin SetDeviceState = %v, %v", state, err)
	}

	// Operator controls its allowlisted channel only.
	if _, err := f.service.SetDeviceState(ctx, operatorToken, 1, device.Flip()); err != nil {
		t.Errorf("operator on allowlisted channel: %v", err)
	}
	if _, err := f.service.SetDeviceState(ctx, operatorToken, 2, device.Flip()); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("operator off allowlist: err = %v, want ErrForbidden", err)
	}

	// Viewer controls nothing.
	if _, err := f.service.SetDeviceState(ctx, viewerToken, 1, device.Flip()); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("viewer: err = %v, want ErrForbidden", err)
	}

	// No session at all.
	if _, err := f.service.SetDeviceState(ctx, "", 1, device.Flip()); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("no token: err = %v, want ErrUnauthenticated", err)
	}
}

func TestService_DeviceManagementIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminToken := f.login(t, "admin", "admin123")
	operatorToken := f.login(t, "operator", "op-pass")

	d := device.Device{Channel: 9, Name: "Luz_Varanda", DisplayName: "Balcony Light", OutputPins: []int{17}}

	if err := f.service.AddDevice(ctx, operatorToken, d); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("operator AddDevice: err = %v, want ErrForbidden", err)
	}
	if err := f.service.AddDevice(ctx, adminToken, d); err != nil {
		t.Fatalf("admin AddDevice: %v", err)
	}

	d.DisplayName = "Balcony"
	if err := f.service.UpdateDevice(ctx, operatorToken, 9, d); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("operator UpdateDevice: err = %v, want ErrForbidden", err)
	}
	if err := f.service.UpdateDevice(ctx, adminToken, 9, d); err != nil {
		t.Errorf("admin UpdateDevice: %v", err)
	}

	if err := f.service.DeleteDevice(ctx, operatorToken, 9); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("operator DeleteDevice: err = %v, want ErrForbidden", err)
	}
	if err := f.service.DeleteDevice(ctx, adminToken, 9); err != nil {
		t.Errorf("admin DeleteDevice: %v", err)
	}
}

func TestService_UserManagementIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminToken := f.login(t, "admin", "admin123")
	operatorToken := f.login(t, "operator", "op-pass")

	if _, err := f.service.ListUsers(operatorToken); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("operator ListUsers: err = %v, want ErrForbidden", err)
	}

	users, err := f.service.ListUsers(adminToken)
	if err != nil {
		t.Fatalf("admin ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("ListUsers() returned %d users, want 3", len(users))
	}

	if err := f.service.AddUser(ctx, operatorToken, "eve", "pw", auth.RoleViewer, nil); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("operator AddUser: err = %v, want ErrForbidden", err)
	}
	if err := f.service.AddUser(ctx, adminToken, "carol", "pw", auth.RoleViewer, nil); err != nil {
		t.Errorf("admin AddUser: %v", err)
	}
}

func TestService_DeleteUserKillsSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminToken := f.login(t, "admin", "admin123")
	viewerToken := f.login(t, "viewer", "view-pass")

	if err := f.service.DeleteUser(ctx, adminToken, "viewer"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	// The deleted user's live session dies with the account.
	if _, err := f.service.ListDevices(viewerToken); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("deleted user's session: err = %v, want ErrUnauthenticated", err)
	}
}

func TestService_DeleteOwnAccountRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminToken := f.login(t, "admin", "admin123")

	err := f.service.DeleteUser(ctx, adminToken, auth.DefaultAdminUsername)
	if !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("self-delete: err = %v, want ErrForbidden", err)
	}

	// The session must survive the refused delete.
	if _, err := f.service.ListDevices(adminToken); err != nil {
		t.Errorf("session should survive a refused self-delete: %v", err)
	}
}

func TestService_UserViewsNeverCarryHashes(t *testing.T) {
	f := newFixture(t)

	adminToken := f.login(t, "admin", "admin123")
	users, err := f.service.ListUsers(adminToken)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}

	// UserView has no hash field; this guards the allowlist defaulting too.
	for _, u := range users {
		if u.AllowedDevices == nil {
			t.Errorf("user %s AllowedDevices should marshal as [], not null", u.Username)
		}
	}
}

func TestService_ExpiredSession(t *testing.T) {
	f := newFixture(t)

	// No session created at all behaves the same as an expired one.
	if _, err := f.service.SessionUser("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("stale token: err = %v, want ErrUnauthenticated", err)
	}
}
