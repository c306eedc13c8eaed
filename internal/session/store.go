package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

// Role is the shopper's role as reported by the backend.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated shopper, or nil for anonymous. It is never
// partially populated: either the probe succeeded and both fields are set,
// or there is no identity at all.
type Identity struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	PostForm(ctx context.Context, path string, values url.Values) error
}

// Listener receives identity transitions. A nil identity means the session
// became anonymous.
type Listener interface {
	IdentityChanged(ctx context.Context, identity *Identity)
}

// Store owns the authenticated identity for one storefront session.
type Store struct {
	api  backend
	logg *logger.Logger

	mu       sync.RWMutex
	identity *Identity
	ready    bool
	listener Listener
}

// NewStore builds a session store backed by the given upstream client.
func NewStore(api backend, logg *logger.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Store{api: api, logg: logg}, nil
}

// SetListener registers the single identity-change listener. Must be called
// before Initialize.
func (s *Store) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// Initialize probes the backend for the current identity. Any failure,
// including "not authenticated", resolves to anonymous rather than an error.
// Dependents must not read cart or order state until this has completed.
func (s *Store) Initialize(ctx context.Context) {
	identity, err := s.probe(ctx)
	if err != nil {
		identity = nil
	}
	s.transition(ctx, identity)
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

// Ready reports whether the startup probe has resolved either way.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Identity returns a copy of the current identity, or nil when anonymous.
func (s *Store) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	copied := *s.identity
	return &copied
}

// Login submits credentials and, on success, re-probes the identity. On
// failure the server's message propagates and the stored identity is left
// untouched.
func (s *Store) Login(ctx context.Context, email, password string) (*Identity, error) {
	values := url.Values{}
	values.Set("username", strings.TrimSpace(email))
	values.Set("password", password)

	if err := s.api.PostForm(ctx, "/auth/login", values); err != nil {
		return nil, err
	}

	identity, err := s.probe(ctx)
	if err != nil {
		return nil, err
	}
	s.transition(ctx, identity)
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return s.Identity(), nil
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ProfileData string `json:"profileData,omitempty"`
}

// Register creates the account and then runs the full login flow. A login
// failure after a successful registration surfaces as a login error rather
// than being swallowed.
func (s *Store) Register(ctx context.Context, input RegisterInput) (*Identity, error) {
	if err := s.api.PostJSON(ctx, "/auth/register", input, nil); err != nil {
		return nil, err
	}
	return s.Login(ctx, input.Email, input.Password)
}

// Logout invalidates the server session and clears the identity
// unconditionally, even when the server call fails.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.PostJSON(ctx, "/auth/logout", nil, nil); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session.logout.upstream_failed")
	}
	s.transition(ctx, nil)
}

func (s *Store) probe(ctx context.Context) (*Identity, error) {
	var payload struct {
		Email string `json:"email"`
		Role  Role   `json:"role"`
	}
	if err := s.api.GetJSON(ctx, "/auth/me", &payload); err != nil {
		return nil, err
	}
	if payload.Email == "" || !payload.Role.IsValid() {
		return nil, fmt.Errorf("incomplete identity from backend")
	}
	return &Identity{Email: payload.Email, Role: payload.Role}, nil
}

func (s *Store) transition(ctx context.Context, identity *Identity) {
	s.mu.Lock()
	s.identity = identity
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.IdentityChanged(ctx, identity)
	}
}
