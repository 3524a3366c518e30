package directory

import (
	"context"
	"errors"
	"sync"

	"github.com/corpdir/adbridge/internal/bridge/domain"
)

// Scope caches directory lookups for the duration of one logical
// operation. Hits and definitive misses are remembered; unavailability
// is not, so a later lookup in the same operation may still succeed.
type Scope struct {
	mu      sync.Mutex
	entries map[string]scopeEntry
}

type scopeEntry struct {
	identity *domain.DirectoryIdentity
	missing  bool
}

// NewScope returns an empty resolution scope.
func NewScope() *Scope {
	return &Scope{entries: make(map[string]scopeEntry)}
}

func (s *Scope) lookup(key string) (scopeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *Scope) store(key string, e scopeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

type scopeCtxKey struct{}

// WithScope attaches a resolution scope to ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, s)
}

// ScopeFromContext returns the scope attached to ctx, or a fresh one so
// lookups are never accidentally shared across operations.
func ScopeFromContext(ctx context.Context) *Scope {
	if s, ok := ctx.Value(scopeCtxKey{}).(*Scope); ok {
		return s
	}
	return NewScope()
}

// Resolver answers attribute lookups from the live directory, caching
// within the supplied scope only.
type Resolver struct {
	Client Client
}

// Resolve returns the live directory record for key. A nil scope means
// no caching at all.
func (r *Resolver) Resolve(ctx context.Context, scope *Scope, key string) (*domain.DirectoryIdentity, error) {
	if scope != nil {
		if e, ok := scope.lookup(key); ok {
			if e.missing {
				return nil, ErrNotFound
			}
			return e.identity, nil
		}
	}

	id, err := r.Client.FindByKey(ctx, key)
	switch {
	case err == nil:
		if scope != nil {
			scope.store(key, scopeEntry{identity: id})
		}
		return id, nil
	case errors.Is(err, ErrNotFound):
		if scope != nil {
			scope.store(key, scopeEntry{missing: true})
		}
		return nil, ErrNotFound
	default:
		return nil, err
	}
}
