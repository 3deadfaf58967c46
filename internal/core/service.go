// Package core is the transport-free facade over authentication, devices,
// and user management. HTTP handlers, the MQTT bridge, and tests all talk to
// Service; none of them touch the registries directly.
package core

import (
	"context"
	"fmt"

	"github.com/nerrad567/relaycore/internal/auth"
	"github.com/nerrad567/relaycore/internal/device"
)

// Logger is the minimal logging surface the service needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Service glues the auth gate to the device and user registries and
// enforces authorisation on every operation that needs it.
type Service struct {
	users    *auth.Store
	sessions *auth.Sessions
	gate     *auth.Gate
	devices  *device.Registry
	logger   Logger
}

// New wires a service over the registries.
func New(users *auth.Store, sessions *auth.Sessions, gate *auth.Gate, devices *device.Registry, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		users:    users,
		sessions: sessions,
		gate:     gate,
		devices:  devices,
		logger:   logger,
	}
}

// Login authenticates and mints a session token.
func (s *Service) Login(username, password string) (string, error) {
	if err := s.users.Authenticate(username, password); err != nil {
		s.logger.Warn("login rejected", "username", username)
		return "", err
	}
	token, err := s.sessions.Create(username)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("login", "username", username)
	return token, nil
}

// Logout invalidates a token. Idempotent.
func (s *Service) Logout(token string) {
	s.sessions.Delete(token)
}

// SessionUser resolves a token to its account view. Transports that need the
// caller's identity before doing any work, such as the WebSocket upgrade, go
// through here.
func (s *Service) SessionUser(token string) (UserView, error) {
	decision, username := s.gate.CanPerform(token, auth.OpDeviceRead, 0)
	if decision != auth.Allowed {
		return UserView{}, decisionErr(decision)
	}
	u, err := s.users.Get(username)
	if err != nil {
		return UserView{}, auth.ErrUnauthenticated
	}
	return userView(u), nil
}

// DeviceView is what a logged-in user sees of a device: everything except
// other users' permissions, plus whether this user may control it.
type DeviceView struct {
	Channel      int    `json:"channel"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	State        bool   `json:"state"`
	CanControl   bool   `json:"can_control"`
	VoiceExposed bool   `json:"voice_exposed"`
}

// ListDevices returns all devices annotated with the caller's control
// rights. Any authenticated user may list; control rights vary per device.
func (s *Service) ListDevices(token string) ([]DeviceView, error) {
	decision, username := s.gate.CanPerform(token, auth.OpDeviceRead, 0)
	if decision != auth.Allowed {
		return nil, decisionErr(decision)
	}

	user, err := s.users.Get(username)
	if err != nil {
		return nil, auth.ErrUnauthenticated
	}

	devices := s.devices.List()
	out := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceView{
			Channel:      d.Channel,
			Name:         d.Name,
			DisplayName:  d.DisplayName,
			State:        d.State,
			CanControl:   user.CanControl(d.Channel),
			VoiceExposed: d.VoiceExposed,
		})
	}
	return out, nil
}

// GetDevice returns one device annotated with the caller's control rights.
func (s *Service) GetDevice(token string, channel int) (DeviceView, error) {
	decision, username := s.gate.CanPerform(token, auth.OpDeviceRead, channel)
	if decision != auth.Allowed {
		return DeviceView{}, decisionErr(decision)
	}

	user, err := s.users.Get(username)
	if err != nil {
		return DeviceView{}, auth.ErrUnauthenticated
	}

	d, err := s.devices.Get(channel)
	if err != nil {
		return DeviceView{}, err
	}
	return DeviceView{
		Channel:      d.Channel,
		Name:         d.Name,
		DisplayName:  d.DisplayName,
		State:        d.State,
		CanControl:   user.CanControl(d.Channel),
		VoiceExposed: d.VoiceExposed,
	}, nil
}

// SetDeviceState applies a command to a device after authorisation.
// Returns the resulting state.
func (s *Service) SetDeviceState(ctx context.Context, token string, channel int, cmd device.Command) (bool, error) {
	decision, username := s.gate.CanPerform(token, auth.OpDeviceControl, channel)
	if decision != auth.Allowed {
		return false, decisionErr(decision)
	}

	state, err := s.devices.Apply(ctx, channel, cmd)
	if err == nil {
		s.logger.Info("device command", "username", username, "channel", channel, "state", state)
	}
	return state, err
}

// AddDevice registers a new device. Admin only.
func (s *Service) AddDevice(ctx context.Context, token string, d device.Device) error {
	decision, _ := s.gate.CanPerform(token, auth.OpDeviceManage, 0)
	if decision != auth.Allowed {
		return decisionErr(decision)
	}
	return s.devices.Add(ctx, d)
}

// UpdateDevice replaces a device's metadata. Admin only.
func (s *Service) UpdateDevice(ctx context.Context, token string, channel int, d device.Device) error {
	decision, _ := s.gate.CanPerform(token, auth.OpDeviceManage, 0)
	if decision != auth.Allowed {
		return decisionErr(decision)
	}
	return s.devices.Update(ctx, channel, d)
}

// DeleteDevice removes a device. Admin only.
func (s *Service) DeleteDevice(ctx context.Context, token string, channel int) error {
	decision, _ := s.gate.CanPerform(token, auth.OpDeviceManage, 0)
	if decision != auth.Allowed {
		return decisionErr(decision)
	}
	return s.devices.Delete(ctx, channel)
}

// UserView is the API-safe projection of an account: no hash.
type UserView struct {
	Username       string    `json:"username"`
	Role           auth.Role `json:"role"`
	AllowedDevices []int     `json:"allowed_devices"`
}

func userView(u auth.User) UserView {
	allowed := u.AllowedDevices
	if allowed == nil {
		allowed = []int{}
	}
	return UserView{Username: u.Username, Role: u.Role, AllowedDevices: allowed}
}

// ListUsers returns all accounts. Admin only.
func (s *Service) ListUsers(token string) ([]UserView, error) {
	decision, _ := s.gate.CanPerform(token, auth.OpUserManage, 0)
	if decision != auth.Allowed {
		return nil, decisionErr(decision)
	}

	users := s.users.List()
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	return out, nil
}

// AddUser creates an account. Admin only.
func (s *Service) AddUser(ctx context.Context, token, username, password string, role auth.Role, allowed []int) error {
	decision, _ := s.gate.CanPerform(token, auth.OpUserManage, 0)
	if decision != auth.Allowed {
		return decisionErr(decision)
	}
	return s.users.Add(ctx, username, password, role, allowed)
}

// UpdateUser applies a partial update to an account. Admin only.
func (s *Service) UpdateUser(ctx context.Context, token, username string, upd auth.UserUpdate) error {
	decision, _ := s.gate.CanPerform(token, auth.OpUserManage, 0)
	if decision != auth.Allowed {
		return decisionErr(decision)
	}
	return s.users.Update(ctx, username, upd)
}

// DeleteUser removes an account and kills its live sessions. Admin only.
// Self-deletion is refused so an admin cannot saw off the branch they are
// sitting on mid-session.
func (s *Service) DeleteUser(ctx context.Context, token, username string) error {
	decision, caller := s.gate.CanPerform(token, auth.OpUserManage, 0)
	if decision != auth.Allowed {
		return decisionErr(decision)
	}
	if caller == username {
		return fmt.Errorf("%w: cannot delete own account", auth.ErrForbidden)
	}

	if err := s.users.Delete(ctx, username); err != nil {
		return err
	}
	s.sessions.DeleteUser(username)
	return nil
}

func decisionErr(d auth.Decision) error {
	if d == auth.Forbidden {
		return auth.ErrForbidden
	}
	return auth.ErrUnauthenticated
}
