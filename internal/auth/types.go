package auth

import (
	"errors"
	"regexp"
	"slices"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAdmin can manage users and control every device regardless of
	// allowlist.
	RoleAdmin Role = "admin"

	// RoleOperator can control the devices on its allowlist, nothing more.
	RoleOperator Role = "operator"

	// RoleViewer can read device state but never mutate anything.
	RoleViewer Role = "viewer"
)

// ValidRoles is the set of valid user roles.
var ValidRoles = []Role{RoleAdmin, RoleOperator, RoleViewer}

// IsValidRole returns true if the role is one of the known tiers.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// User is a stored account. PasswordHash is an Argon2id PHC string; it is
// part of the persisted registry blob but must never leave the auth package
// in API responses.
type User struct {
	Username       string `json:"username"`
	PasswordHash   string `json:"password_hash"`
	Role           Role   `json:"role"`
	AllowedDevices []int  `json:"allowed_devices"`
}

// CanControl reports whether this user may mutate the given channel.
// Admins control everything; operators only allowlisted channels; viewers
// nothing.
func (u *User) CanControl(channel int) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleOperator:
		return slices.Contains(u.AllowedDevices, channel)
	default:
		return false
	}
}

// clone returns an independent copy so callers cannot mutate stored state.
func (u *User) clone() User {
	cp := *u
	if u.AllowedDevices != nil {
		cp.AllowedDevices = slices.Clone(u.AllowedDevices)
	}
	return cp
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("insufficient permissions")
)
