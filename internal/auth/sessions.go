package auth

import (
	"crypto/rand"
	"sync"
	"time"
)

const (
	// TokenLength is the fixed length of session tokens.
	TokenLength = 32

	// SessionTimeout is the sliding inactivity window. Every successful
	// validation pushes expiry a full window into the future.
	SessionTimeout = time.Hour

	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

type session struct {
	username     string
	createdAt    time.Time
	lastActivity time.Time
}

// Sessions tracks live login sessions in memory.
//
// Tokens are 32-character alphanumeric strings from crypto/rand. Sessions
// expire one hour after their last validated use; validation refreshes the
// window. Nothing here touches disk, so a restart logs everyone out.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session

	// now is swappable for tests.
	now func() time.Time
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Create mints a session for username and returns the token.
// Multiple concurrent sessions per user are allowed.
func (s *Sessions) Create(username string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sessions[token] = &session{
		username:     username,
		createdAt:    now,
		lastActivity: now,
	}
	return token, nil
}

// Username resolves a token to its username, refreshing the sliding expiry
// window. Unknown and expired tokens return ""; expired sessions are removed
// as a side effect.
func (s *Sessions) Username(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return ""
	}

	now := s.now()
	if expired(sess, now) {
		delete(s.sessions, token)
		return ""
	}

	sess.lastActivity = now
	return sess.username
}

// Delete removes a session. Deleting an unknown token is a no-op, so logout
// is idempotent.
func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// DeleteUser removes every session belonging to username. Called when the
// account itself is deleted so its tokens die with it.
func (s *Sessions) DeleteUser(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, sess := range s.sessions {
		if sess.username == username {
			delete(s.sessions, token)
		}
	}
}

// SweepExpired removes every expired session and reports how many went.
// Validation already evicts lazily; the sweep stops abandoned tokens from
// accumulating between visits.
func (s *Sessions) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if expired(sess, now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Count reports the number of live sessions, expired or not.
func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// expired applies the sliding window. A clock that moved backwards reads as
// zero elapsed time rather than a huge positive interval.
func expired(sess *session, now time.Time) bool {
	if now.Before(sess.lastActivity) {
		return false
	}
	return now.Sub(sess.lastActivity) > SessionTimeout
}

// newToken draws TokenLength characters uniformly from tokenAlphabet using
// rejection sampling, so no character is favoured by modulo bias.
func newToken() (string, error) {
	const maxAccept = 248 // largest multiple of 62 below 256

	token := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength)
	for len(token) < TokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= maxAccept {
				continue
			}
			token = append(token, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(token) == TokenLength {
				break
			}
		}
	}
	return string(token), nil
}
