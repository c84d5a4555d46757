// Package display issues short-lived URLs for binary payloads the UI renders.
//
// A Handle is the owning token for one URL. The payload stays resolvable
// until the handle is released, reaped, or collected; once gone the URL
// answers 404. Handles are never persisted.
package display

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultBasePath is where the HTTP API serves resolved handles.
const DefaultBasePath = "/api/v1/blobs"

// Entry is what a handle id resolves to.
type Entry struct {
	ID        string
	MimeType  string
	Blob      []byte
	CreatedAt time.Time
}

type Registry struct {
	basePath string
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
	scopes  map[string]*Scope
}

type Option func(*Registry)

func WithBasePath(path string) Option {
	return func(r *Registry) {
		r.basePath = strings.TrimRight(path, "/")
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		basePath: DefaultBasePath,
		now:      time.Now,
		entries:  map[string]*Entry{},
		scopes:   map[string]*Scope{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers blob and returns its owning handle. The blob is shared,
// not copied; callers must not mutate it afterwards.
func (r *Registry) Create(blob []byte, mimeType string) *Handle {
	id := uuid.NewString()
	entry := &Entry{
		ID:        id,
		MimeType:  mimeType,
		Blob:      blob,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()

	h := &Handle{id: id, url: r.basePath + "/" + id, registry: r}
	// Safety net for handles dropped without Release. The cleanup closure
	// must not reference h.
	h.cleanup = runtime.AddCleanup(h, func(key string) {
		r.revoke(key)
	}, id)
	return h
}

// Resolve returns the payload behind id, or false once it is gone.
func (r *Registry) Resolve(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Revoke drops id regardless of who holds the handle. Returns whether the
// id was still live.
func (r *Registry) Revoke(id string) bool {
	return r.revoke(id)
}

func (r *Registry) revoke(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Live reports how many URLs are currently resolvable.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reap revokes every entry created more than idle ago and returns how many
// were dropped. Reaped handles leave their scopes, and scopes left empty and
// untouched for idle are forgotten.
func (r *Registry) Reap(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	reaped := map[string]bool{}
	for id, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(r.entries, id)
			reaped[id] = true
		}
	}
	for name, scope := range r.scopes {
		if scope.prune(reaped, cutoff) {
			delete(r.scopes, name)
		}
	}
	return len(reaped)
}

// Scope returns the named scope, creating it on first use.
func (r *Registry) Scope(name string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[name]
	if !ok {
		s = &Scope{name: name, now: r.now}
		r.scopes[name] = s
	}
	s.touch()
	return s
}

// ReleaseScope releases everything the scope holds and forgets it.
func (r *Registry) ReleaseScope(name string) int {
	r.mu.Lock()
	s, ok := r.scopes[name]
	delete(r.scopes, name)
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return s.Reset()
}

// Handle owns one display URL.
type Handle struct {
	id       string
	url      string
	registry *Registry
	released atomic.Bool
	cleanup  runtime.Cleanup
}

func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

func (h *Handle) URL() string {
	if h == nil {
		return ""
	}
	return h.url
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	return h == nil || h.released.Load()
}

// Release revokes the URL. Only the first call has an effect.
func (h *Handle) Release() {
	if h == nil || !h.markReleased() {
		return
	}
	h.registry.revoke(h.id)
}

// markReleased flips the handle to released without touching the registry.
func (h *Handle) markReleased() bool {
	if !h.released.CompareAndSwap(false, true) {
		return false
	}
	h.cleanup.Stop()
	return true
}

// Scope groups the handles behind one gallery view so they can be released
// together when the view is reset or closed.
type Scope struct {
	name string
	now  func() time.Time

	mu      sync.Mutex
	handles []*Handle
	touched time.Time
}

func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) Add(handles ...*Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()
	for _, h := range handles {
		if h != nil {
			s.handles = append(s.handles, h)
		}
	}
}

func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Reset releases every held handle and empties the scope.
func (s *Scope) Reset() int {
	s.mu.Lock()
	held := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range held {
		h.Release()
	}
	return len(held)
}

func (s *Scope) touch() {
	s.mu.Lock()
	s.touched = s.now()
	s.mu.Unlock()
}

// prune drops the reaped handles and reports whether the scope is empty and
// was last used before cutoff.
func (s *Scope) prune(reaped map[string]bool, cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.handles[:0]
	for _, h := range s.handles {
		if reaped[h.id] {
			h.markReleased()
			continue
		}
		kept = append(kept, h)
	}
	clear(s.handles[len(kept):])
	s.handles = kept
	return len(s.handles) == 0 && s.touched.Before(cutoff)
}
