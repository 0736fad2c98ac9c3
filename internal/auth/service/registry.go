package service

import (
	"sync"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

// SceneRegistry tracks the currently active scene token per (ip, scene).
// Re-issuing replaces the previous entry, so only the newest token of a
// scene can drive the login flow; the account-scene entry doubles as the
// transport passphrase lookup.
type SceneRegistry struct {
	mu      sync.Mutex
	entries map[registryKey]registryEntry
}

type registryKey struct {
	ip    string
	scene domain.Scene
}

type registryEntry struct {
	token     string
	expiresAt time.Time
}

func NewSceneRegistry() *SceneRegistry {
	return &SceneRegistry{entries: make(map[registryKey]registryEntry)}
}

// Put registers token as the active one for (ip, scene), replacing any
// previous entry.
func (r *SceneRegistry) Put(ip string, scene domain.Scene, token string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[registryKey{ip: ip, scene: scene}] = registryEntry{token: token, expiresAt: expiresAt}
}

// Get returns the active token for (ip, scene). Expired entries are dropped
// on the way out.
func (r *SceneRegistry) Get(ip string, scene domain.Scene) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{ip: ip, scene: scene}
	e, ok := r.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(r.entries, key)
		return "", false
	}
	return e.token, true
}

// Delete evicts a single entry.
func (r *SceneRegistry) Delete(ip string, scene domain.Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, registryKey{ip: ip, scene: scene})
}

// ClearIP evicts every scene entry for an IP, used once a login completes.
func (r *SceneRegistry) ClearIP(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if key.ip == ip {
			delete(r.entries, key)
		}
	}
}

// Sweep drops expired entries; called by housekeeping.
func (r *SceneRegistry) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		if now.After(e.expiresAt) {
			delete(r.entries, key)
		}
	}
}
