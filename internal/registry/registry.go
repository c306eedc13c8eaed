package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/groceryscout/storefront-gateway/internal/admin"
	"github.com/groceryscout/storefront-gateway/internal/cart"
	"github.com/groceryscout/storefront-gateway/internal/catalog"
	"github.com/groceryscout/storefront-gateway/internal/manager"
	"github.com/groceryscout/storefront-gateway/internal/orders"
	"github.com/groceryscout/storefront-gateway/internal/recipes"
	"github.com/groceryscout/storefront-gateway/internal/session"
	"github.com/groceryscout/storefront-gateway/pkg/auth"
	"github.com/groceryscout/storefront-gateway/pkg/config"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
	"github.com/groceryscout/storefront-gateway/pkg/metrics"
	redisclient "github.com/groceryscout/storefront-gateway/pkg/redis"
	"github.com/groceryscout/storefront-gateway/pkg/upstream"
)

// Session bundles everything one browser session owns: its upstream client
// (and cookie jar), identity store, cart synchronizer, and view services.
// Views receive these components; they never talk to cart endpoints directly.
type Session struct {
	ID      string
	API     *upstream.Client
	Auth    *session.Store
	Cart    *cart.Synchronizer
	Catalog *catalog.Service
	Orders  *orders.Service
	Watcher *orders.Watcher
	Recipes *recipes.Service
	Admin   *admin.Service
	Manager *manager.Service

	lastSeen time.Time
}

type persister interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(sessionID string) string
}

// Registry maps session identifiers to live component sets. The upstream
// cookie snapshot is persisted in Redis so a gateway restart can rebuild a
// session instead of logging the shopper out.
type Registry struct {
	upstreamCfg config.UpstreamConfig
	sessionCfg  config.SessionConfig
	ordersCfg   config.OrdersConfig
	logg        *logger.Logger
	metrics     *metrics.UpstreamMetrics
	store       persister

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds an empty registry.
func New(cfg *config.Config, logg *logger.Logger, m *metrics.UpstreamMetrics, store persister) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if store == nil {
		return nil, fmt.Errorf("session persister required")
	}
	return &Registry{
		upstreamCfg: cfg.Upstream,
		sessionCfg:  cfg.Session,
		ordersCfg:   cfg.Orders,
		logg:        logg,
		metrics:     m,
		store:       store,
		sessions:    make(map[string]*Session),
	}, nil
}

// Create provisions a fresh anonymous session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := auth.NewSessionID()
	sess, err := r.build(id)
	if err != nil {
		return nil, err
	}
	sess.Auth.Initialize(ctx)

	if err := r.persist(ctx, sess); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()
	return sess, nil
}

// Get returns the live session for the identifier, rebuilding it from the
// persisted cookie snapshot after a restart. Unknown identifiers fail with
// an unauthorized error so the middleware can mint a new session.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	if sess, ok := r.sessions[id]; ok {
		sess.lastSeen = time.Now()
		r.mu.Unlock()
		return sess, nil
	}
	r.mu.Unlock()

	raw, err := r.store.Get(ctx, r.store.SessionKey(id))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}

	sess, err := r.build(id)
	if err != nil {
		return nil, err
	}
	restoreCookies(sess.API, raw)
	sess.Auth.Initialize(ctx)
	if sess.Auth.Identity() != nil {
		// Watcher lifetime is the session's, not the rebuilding request's.
		sess.Watcher.Start(context.Background())
	}

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		// Another request rebuilt it first; keep one set per session ID.
		existing.lastSeen = time.Now()
		r.mu.Unlock()
		sess.Watcher.Stop()
		return existing, nil
	}
	r.sessions[id] = sess
	r.mu.Unlock()
	return sess, nil
}

// Persist saves the session's upstream cookie snapshot. Called after any
// operation that may have changed the backend session cookie.
func (r *Registry) Persist(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session required")
	}
	return r.persist(ctx, sess)
}

// Drop removes the session from memory and Redis, stopping its watcher.
func (r *Registry) Drop(ctx context.Context, id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.Watcher.Stop()
	}
	return r.store.Del(ctx, r.store.SessionKey(id))
}

// Sweep evicts sessions idle longer than the configured eviction window.
// Their Redis records remain, so a returning shopper gets rebuilt.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.sessionCfg.IdleEviction)

	r.mu.Lock()
	var evicted []*Session
	for id, sess := range r.sessions {
		if sess.lastSeen.Before(cutoff) {
			evicted = append(evicted, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range evicted {
		sess.Watcher.Stop()
	}
	return len(evicted)
}

// RunSweeper evicts idle sessions on the configured interval until the
// context is cancelled.
func (r *Registry) RunSweeper(ctx context.Context) {
	interval := r.sessionCfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := r.Sweep(now); evicted > 0 && r.logg != nil {
				r.logg.Info(r.logg.WithField(ctx, "evicted", evicted), "registry.sweep")
			}
		}
	}
}

// Close stops every live watcher.
func (r *Registry) Close() error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var err error
	for _, sess := range sessions {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					err = multierr.Append(err, fmt.Errorf("stop watcher for session %s: %v", sess.ID, rec))
				}
			}()
			sess.Watcher.Stop()
		}()
	}
	return err
}

func (r *Registry) build(id string) (*Session, error) {
	api, err := upstream.NewClient(r.upstreamCfg, r.logg, r.metrics)
	if err != nil {
		return nil, err
	}
	authStore, err := session.NewStore(api, r.logg)
	if err != nil {
		return nil, err
	}
	cartSync, err := cart.NewSynchronizer(api, r.logg)
	if err != nil {
		return nil, err
	}
	authStore.SetListener(cartSync)

	catalogSvc, err := catalog.NewService(api)
	if err != nil {
		return nil, err
	}
	ordersSvc, err := orders.NewService(api)
	if err != nil {
		return nil, err
	}
	watcher, err := orders.NewWatcher(ordersSvc, r.logg, r.metrics, r.ordersCfg.PollInterval)
	if err != nil {
		return nil, err
	}
	recipesSvc, err := recipes.NewService(api)
	if err != nil {
		return nil, err
	}
	adminSvc, err := admin.NewService(api)
	if err != nil {
		return nil, err
	}
	managerSvc, err := manager.NewService(api)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:       id,
		API:      api,
		Auth:     authStore,
		Cart:     cartSync,
		Catalog:  catalogSvc,
		Orders:   ordersSvc,
		Watcher:  watcher,
		Recipes:  recipesSvc,
		Admin:    adminSvc,
		Manager:  managerSvc,
		lastSeen: time.Now(),
	}, nil
}

type persistedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

func (r *Registry) persist(ctx context.Context, sess *Session) error {
	cookies := sess.API.Cookies()
	snapshot := make([]persistedCookie, 0, len(cookies))
	for _, c := range cookies {
		snapshot = append(snapshot, persistedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session snapshot")
	}
	if err := r.store.Set(ctx, r.store.SessionKey(sess.ID), string(encoded), r.sessionCfg.TTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist session")
	}
	return nil
}

func restoreCookies(api *upstream.Client, raw string) {
	var snapshot []persistedCookie
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return
	}
	cookies := make([]*http.Cookie, 0, len(snapshot))
	for _, c := range snapshot {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	api.RestoreCookies(cookies)
}
