package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/relaycore/internal/storage"
)

// Default account seeded on first boot or after a wiped registry.
// Deployments are expected to change the password immediately.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Logger is the minimal logging surface the store needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store holds user accounts in memory and mirrors every mutation to durable
// storage as a single JSON blob under storage.KeyUsers.
type Store struct {
	mu    sync.RWMutex
	users map[string]*User

	store  storage.Store
	logger Logger
}

// NewStore creates an empty credential store. Call Load before use.
func NewStore(store storage.Store, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		users:  make(map[string]*User),
		store:  store,
		logger: logger,
	}
}

// Load populates the store from durable storage. An absent or corrupt blob
// yields the default admin account, which is persisted immediately so the
// registry exists on disk from then on.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load(ctx, storage.KeyUsers)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info("no stored users, seeding default admin")
		return s.seedDefaultLocked(ctx)
	case err != nil:
		return fmt.Errorf("loading users: %w", err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		s.logger.Error("stored users corrupt, seeding default admin", "error", err)
		return s.seedDefaultLocked(ctx)
	}

	s.users = make(map[string]*User, len(users))
	for i := range users {
		u := users[i]
		s.users[u.Username] = &u
	}

	// A registry with zero accounts would lock everyone out for good.
	if len(s.users) == 0 {
		s.logger.Warn("stored user registry is empty, seeding default admin")
		return s.seedDefaultLocked(ctx)
	}

	s.logger.Info("users loaded", "count", len(s.users))
	return nil
}

func (s *Store) seedDefaultLocked(ctx context.Context) error {
	hash, err := HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing default admin password: %w", err)
	}
	s.users = map[string]*User{
		DefaultAdminUsername: {
			Username:     DefaultAdminUsername,
			PasswordHash: hash,
			Role:         RoleAdmin,
		},
	}
	return s.persistLocked(ctx)
}

// Authenticate verifies username/password. The error is always
// ErrInvalidCredentials on failure; it never says which half was wrong.
func (s *Store) Authenticate(username, password string) error {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		// Burn a hash anyway so response timing does not reveal whether
		// the username exists.
		_, _ = VerifyPassword(password, dummyHash)
		return ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !match {
		return ErrInvalidCredentials
	}
	return nil
}

// dummyHash is a hash of an unguessable throwaway value, used to equalise
// timing for unknown usernames.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Get returns a copy of the named user.
func (s *Store) Get(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u.clone(), nil
}

// List returns copies of all users sorted by username.
func (s *Store) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Count reports the number of accounts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Add creates an account. The password is hashed here; callers never handle
// hashes. Fails with ErrUsernameExists on duplicates.
func (s *Store) Add(ctx context.Context, username, password string, role Role, allowed []int) error {
	if !IsValidUsername(username) {
		return ErrInvalidUsername
	}
	if !IsValidRole(role) {
		return ErrInvalidRole
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUsernameExists
	}

	s.users[username] = &User{
		Username:       username,
		PasswordHash:   hash,
		Role:           role,
		AllowedDevices: append([]int(nil), allowed...),
	}
	s.logger.Info("user added", "username", username, "role", role)
	return s.persistLocked(ctx)
}

// UserUpdate carries the mutable fields of an account. Nil fields are left
// unchanged; an empty password means "keep the current one".
type UserUpdate struct {
	Password       *string
	Role           *Role
	AllowedDevices []int
	SetAllowed     bool
}

// Update applies a partial update to an existing account.
func (s *Store) Update(ctx context.Context, username string, upd UserUpdate) error {
	if upd.Role != nil && !IsValidRole(*upd.Role) {
		return ErrInvalidRole
	}

	var hash string
	if upd.Password != nil && *upd.Password != "" {
		h, err := HashPassword(*upd.Password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}

	if hash != "" {
		u.PasswordHash = hash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.SetAllowed {
		u.AllowedDevices = append([]int(nil), upd.AllowedDevices...)
	}
	s.logger.Info("user updated", "username", username)
	return s.persistLocked(ctx)
}

// Delete removes an account. Removing the last admin is refused so the
// system can never become unmanageable.
func (s *Store) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}

	if u.Role == RoleAdmin && s.adminCountLocked() == 1 {
		return fmt.Errorf("%w: cannot delete the last admin", ErrForbidden)
	}

	delete(s.users, username)
	s.logger.Info("user deleted", "username", username)
	return s.persistLocked(ctx)
}

func (s *Store) adminCountLocked() int {
	n := 0
	for _, u := range s.users {
		if u.Role == RoleAdmin {
			n++
		}
	}
	return n
}

// persistLocked serialises the full user set and saves it. On failure the
// in-memory change stands; the error is wrapped in storage.ErrPersistence so
// callers can tell the caller-visible truth.
func (s *Store) persistLocked(ctx context.Context) error {
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("%w: encoding users: %v", storage.ErrPersistence, err)
	}
	if err := s.store.Save(ctx, storage.KeyUsers, data); err != nil {
		s.logger.Error("persisting users failed", "error", err)
		return fmt.Errorf("%w: %v", storage.ErrPersistence, err)
	}
	return nil
}
