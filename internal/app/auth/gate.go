// Package auth is the demo login gate in front of the app.
//
// It decides whether a user may enter; it does not identify accounts and
// never touches the ledger.
package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greencred/greencred/internal/domain"
)

const (
	DemoEmail    = "demo@greencred.com"
	DemoPassword = "demo123"

	// MinPasswordLength applies to non-demo logins.
	MinPasswordLength = 6
)

// Session is the token handed back after a successful login.
type Session struct {
	ID        string    `json:"session_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Demo      bool      `json:"demo"`
	CreatedAt time.Time `json:"created_at"`
}

// Gate checks credentials and tracks issued sessions in memory.
type Gate struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{sessions: make(map[string]Session), now: time.Now}
}

// Login accepts the demo pair, or any email containing "@" with a password
// of at least MinPasswordLength characters.
func (g *Gate) Login(email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	demo := email == DemoEmail && password == DemoPassword
	if !demo {
		if !strings.Contains(email, "@") {
			return Session{}, fmt.Errorf("%w: email must contain @", domain.ErrInvalidCredentials)
		}
		if len(password) < MinPasswordLength {
			return Session{}, fmt.Errorf("%w: password must be at least %d characters",
				domain.ErrInvalidCredentials, MinPasswordLength)
		}
	}

	s := Session{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      DisplayName(email),
		Demo:      demo,
		CreatedAt: g.now(),
	}
	g.mu.Lock()
	g.sessions[s.ID] = s
	g.mu.Unlock()
	return s, nil
}

// Session looks up an issued session.
func (g *Gate) Session(id string) (Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sessions[id]
	return s, ok
}

// Logout forgets a session. Unknown IDs are ignored.
func (g *Gate) Logout(id string) {
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
}

// DisplayName derives a greeting name from the email's local part.
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Eco Warrior"
	}
	return strings.ToUpper(local[:1]) + local[1:]
}
