// Package auth holds the demo credential check and the session type that
// replaces a global "logged in" flag.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Credentials is the single demo account accepted by Authenticate.
type Credentials struct {
	Email    string
	Password string
}

// Authenticate succeeds only for the exact demo pair. Empty input is rejected
// before any comparison.
func Authenticate(demo Credentials, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(demo.Email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(demo.Password)) == 1
	if !emailOK || !passOK || demo.Email == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// Session is created on login and dropped on logout. Views only read it.
type Session struct {
	email     string
	token     string
	createdAt time.Time
}

func NewSession(email, token string, createdAt time.Time) *Session {
	return &Session{email: email, token: token, createdAt: createdAt}
}

func (s *Session) Email() string        { return s.email }
func (s *Session) Token() string        { return s.token }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
