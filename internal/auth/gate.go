package auth

// Decision is the three-valued outcome of an authorisation check.
// Transports map Unauthenticated to 401 and Forbidden to 403.
type Decision int

const (
	// Allowed means the token is live and the user may proceed.
	Allowed Decision = iota

	// Unauthenticated means the token is missing, unknown, or expired.
	Unauthenticated

	// Forbidden means the session is valid but the role or allowlist
	// denies the operation.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Operation classifies what the caller wants to do.
type Operation int

const (
	// OpDeviceRead covers listing devices and reading state.
	OpDeviceRead Operation = iota

	// OpDeviceControl covers toggling or setting a device. Requires a
	// channel.
	OpDeviceControl

	// OpUserManage covers all user CRUD. Admin only.
	OpUserManage

	// OpDeviceManage covers device CRUD (add, rename, delete). Admin only.
	OpDeviceManage
)

// Gate decides whether a session token may perform an operation. It holds no
// state of its own; every check reads the session and user registries fresh.
type Gate struct {
	sessions *Sessions
	users    *Store
}

// NewGate wires a gate over the session and user registries.
func NewGate(sessions *Sessions, users *Store) *Gate {
	return &Gate{sessions: sessions, users: users}
}

// CanPerform checks token against op. For OpDeviceControl the channel
// identifies the target device; other operations ignore it.
//
// The returned username is set only when the decision is Allowed or
// Forbidden, never for Unauthenticated.
func (g *Gate) CanPerform(token string, op Operation, channel int) (Decision, string) {
	username := g.sessions.Username(token)
	if username == "" {
		return Unauthenticated, ""
	}

	user, err := g.users.Get(username)
	if err != nil {
		// The account vanished while the session lived. Kill the session
		// so the dangling token cannot be replayed.
		g.sessions.Delete(token)
		return Unauthenticated, ""
	}

	switch op {
	case OpDeviceRead:
		return Allowed, username
	case OpDeviceControl:
		if user.CanControl(channel) {
			return Allowed, username
		}
		return Forbidden, username
	case OpUserManage, OpDeviceManage:
		if user.Role == RoleAdmin {
			return Allowed, username
		}
		return Forbidden, username
	default:
		return Forbidden, username
	}
}
