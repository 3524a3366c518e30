package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/corpdir/adbridge/internal/bridge/domain"
)

// Fake is an in-memory Client for tests. Entries are keyed by external
// key; Down simulates an unreachable service.
type Fake struct {
	mu        sync.Mutex
	entries   map[string]*domain.DirectoryIdentity
	passwords map[string]string

	Down    bool  // every call fails with ErrUnavailable
	MoveErr error // forced failure for MoveEntry

	FindCalls   int
	MoveCalls   int
	ModifyCalls int
}

func NewFake() *Fake {
	return &Fake{
		entries:   make(map[string]*domain.DirectoryIdentity),
		passwords: make(map[string]string),
	}
}

// Add registers an entry and, when secret is non-empty, a credential for it.
func (f *Fake) Add(id *domain.DirectoryIdentity, secret string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[id.Key] = id
	if secret != "" {
		f.passwords[id.Key] = secret
	}
}

// Get returns the current state of an entry, nil when absent.
func (f *Fake) Get(key string) *domain.DirectoryIdentity {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.entries[key]; ok {
		cp := *id
		return &cp
	}
	return nil
}

func (f *Fake) AuthenticateUser(_ context.Context, loginID, secret string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return false, ErrUnavailable
	}
	if loginID == "" || secret == "" {
		return false, ErrInvalidCredentials
	}
	want, ok := f.passwords[loginID]
	if !ok || want != secret {
		return false, ErrInvalidCredentials
	}
	return true, nil
}

func (f *Fake) FindByKey(_ context.Context, key string) (*domain.DirectoryIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FindCalls++
	if f.Down {
		return nil, ErrUnavailable
	}
	id, ok := f.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (f *Fake) SearchScope(_ context.Context, scopeDN string) ([]*domain.DirectoryIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, ErrUnavailable
	}
	var out []*domain.DirectoryIdentity
	for _, id := range f.entries {
		if strings.HasSuffix(strings.ToLower(id.DistinguishedName), strings.ToLower(scopeDN)) {
			cp := *id
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *Fake) MoveEntry(_ context.Context, dn, newRDN, newParent string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MoveCalls++
	if f.Down {
		return ErrUnavailable
	}
	if f.MoveErr != nil {
		return f.MoveErr
	}
	for _, id := range f.entries {
		if strings.EqualFold(id.DistinguishedName, dn) {
			id.DistinguishedName = newRDN + "," + newParent
			return nil
		}
	}
	return ErrNotFound
}

func (f *Fake) ModifyAttributes(_ context.Context, dn string, attrs map[string][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ModifyCalls++
	if f.Down {
		return ErrUnavailable
	}
	for _, id := range f.entries {
		if !strings.EqualFold(id.DistinguishedName, dn) {
			continue
		}
		for name, values := range attrs {
			if len(values) == 0 {
				continue
			}
			switch name {
			case "givenName":
				id.GivenName = values[0]
			case "sn":
				id.Surname = values[0]
			case "displayName":
				id.DisplayName = values[0]
			case "title":
				id.Title = values[0]
			case "department":
				id.Department = values[0]
			}
		}
		return nil
	}
	return ErrNotFound
}

func (f *Fake) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return ErrUnavailable
	}
	return nil
}
