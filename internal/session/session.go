// Package session keeps per-visitor state between requests: the gate state
// machine, the catalog snapshot taken on entry and the gallery state.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/casefiles/internal/browse"
	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/gate"
	"github.com/iliyamo/casefiles/internal/model"
)

// CookieName carries the visitor id.
const CookieName = "visitor_id"

// ErrNotFound is returned by a Store for unknown or expired ids.
var ErrNotFound = errors.New("session not found")

// Visitor is one visitor's server-side state.
type Visitor struct {
	ID       string           `json:"id"`
	Gate     gate.State       `json:"gate"`
	Loaded   bool             `json:"loaded"`
	Catalog  []model.CaseFile `json:"catalog,omitempty"`
	MusicURL *string          `json:"music_url,omitempty"`
	Browse   browse.State     `json:"browse"`
	Created  time.Time        `json:"created"`
	LastSeen time.Time        `json:"last_seen"`
}

// Store returns the catalog snapshot of the visitor.
func (v *Visitor) Store() *catalog.Store { return catalog.NewStore(v.Catalog) }

// SetSnapshot records the catalog loaded on entry.
func (v *Visitor) SetSnapshot(s catalog.Snapshot) {
	v.Catalog = s.Store.All()
	v.MusicURL = s.MusicURL
	v.Loaded = true
	v.Browse = browse.NewState()
}

// Store persists visitors.  Implementations hand out copies, so concurrent
// requests of the same visitor never share a *Visitor.
type Store interface {
	Get(ctx context.Context, id string) (*Visitor, error)
	Save(ctx context.Context, v *Visitor) error
	Delete(ctx context.Context, id string) error
}

// Manager binds visitors to requests through a cookie.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*visitorLock
}

type visitorLock struct {
	sync.Mutex
	refs int
}

// NewManager creates a manager over store.  secure marks the cookie
// HTTPS-only.
func NewManager(store Store, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, ttl: ttl, secure: secure, now: time.Now, locks: make(map[string]*visitorLock)}
}

// Lock serialises the requests of one visitor inside this process, so a
// load-modify-save cycle never interleaves with another for the same id.
// It returns the unlock function.
func (m *Manager) Lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &visitorLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Load returns the visitor of r, creating a fresh one when the cookie is
// missing or its session expired.  created reports the latter case so the
// caller can set the cookie.
func (m *Manager) Load(ctx context.Context, r *http.Request) (v *Visitor, created bool, err error) {
	if c, cerr := r.Cookie(CookieName); cerr == nil && c.Value != "" {
		v, err = m.store.Get(ctx, c.Value)
		switch {
		case err == nil:
			v.LastSeen = m.now()
			return v, false, nil
		case !errors.Is(err, ErrNotFound):
			return nil, false, err
		}
	}
	now := m.now()
	v = &Visitor{
		ID:       uuid.NewString(),
		Browse:   browse.NewState(),
		Created:  now,
		LastSeen: now,
	}
	return v, true, nil
}

// Save stores v.  An accepted gate is never rolled back: when the stored
// visitor already passed the gate and v, loaded earlier, has not, the stored
// gate and catalog snapshot win.  This covers instances sharing a Redis
// store, where Lock does not reach.
func (m *Manager) Save(ctx context.Context, v *Visitor) error {
	if !v.Gate.Accepted() {
		stored, err := m.store.Get(ctx, v.ID)
		switch {
		case err == nil:
			mergeAccepted(v, stored)
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	return m.store.Save(ctx, v)
}

func mergeAccepted(v, stored *Visitor) {
	if !stored.Gate.Accepted() {
		return
	}
	v.Gate = stored.Gate
	if stored.Loaded && !v.Loaded {
		v.Loaded = true
		v.Catalog = stored.Catalog
		v.MusicURL = stored.MusicURL
		v.Browse = stored.Browse
	}
}

// SetCookie writes the visitor cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, v *Visitor) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    v.ID,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie removes the visitor cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
