package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultSessionTimeout is how long a session stays valid after login.
const DefaultSessionTimeout = time.Hour

type UserRecord struct {
	ID        string
	Username  string
	Digest    string
	CreatedAt time.Time
}

type Session struct {
	Token     string
	UserID    string
	Username  string
	CreatedAt time.Time
}

// Store owns the user credential table and the live session set. All access
// goes through one mutex; it is shared between request handlers and must be
// safe under parallel calls.
type Store struct {
	mu       sync.Mutex
	users    map[string]UserRecord
	sessions map[string]Session
	timeout  time.Duration
	now      func() time.Time
}

func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Store{
		users:    map[string]UserRecord{},
		sessions: map[string]Session{},
		timeout:  timeout,
		now:      time.Now,
	}
}

// Register stores a new user under a fresh record id and returns the
// record. Usernames are unique for the lifetime of the store; a duplicate
// registration fails and leaves the stored digest intact.
func (s *Store) Register(username, password string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return UserRecord{}, ErrUserExists
	}
	user := UserRecord{
		ID:        uuid.NewString(),
		Username:  username,
		Digest:    digest(password),
		CreatedAt: s.now(),
	}
	s.users[username] = user
	return user, nil
}

// Login checks credentials and mints a session token. Unknown username and
// wrong password return the same error so callers cannot enumerate users.
func (s *Store) Login(username, password string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if user.Digest != digest(password) {
		return Session{}, ErrInvalidCredentials
	}
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	session := Session{Token: token, UserID: user.ID, Username: username, CreatedAt: s.now()}
	s.sessions[token] = session
	return session, nil
}

// Validate reports whether the token belongs to a live session. Expiry is
// lazy: a session past its timeout is deleted here, on first validation
// after the deadline, never swept proactively. Unknown tokens fail closed.
func (s *Store) Validate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().Sub(session.CreatedAt) > s.timeout {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Logout removes the session if present. Logging out an unknown or expired
// token is not an error.
func (s *Store) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// digest is an unsalted sha256 hex digest. Kept deterministic to match the
// credential format of the existing deployment; see DESIGN.md.
func digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// newToken returns a URL-safe token carrying 32 bytes of entropy.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
