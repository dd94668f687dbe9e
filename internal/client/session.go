package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/auth"
)

// Gate owns the login session. Views get the *auth.Session, which is
// read-only, and ask the gate before showing protected screens.
type Gate struct {
	api *API
	now func() time.Time

	mu      sync.RWMutex
	session *auth.Session
}

func NewGate(api *API) *Gate {
	return &Gate{api: api, now: time.Now}
}

// Login authenticates against the backend and starts a session. Empty
// credentials fail validation without a request; rejected credentials
// return auth.ErrInvalidCredentials and leave any existing state untouched.
func (g *Gate) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, validationError("email and password are required", auth.ErrMissingCredentials)
	}

	resp, err := g.api.login(ctx, email, password)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) && ce.Kind == NonSuccessStatus && ce.Status == http.StatusUnauthorized {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	s := auth.NewSession(resp.Email, resp.Token, g.now())
	g.mu.Lock()
	g.session = s
	g.mu.Unlock()
	g.api.SetToken(resp.Token)
	return s, nil
}

// Logout destroys the session. It is safe to call when logged out.
func (g *Gate) Logout() {
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	g.api.SetToken("")
}

func (g *Gate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session != nil
}

// RequireSession returns the live session or auth.ErrNotAuthenticated.
func (g *Gate) RequireSession() (*auth.Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil, auth.ErrNotAuthenticated
	}
	return g.session, nil
}
