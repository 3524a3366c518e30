package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/pkg/slogx"
)

var ErrIdentityNotFound = errors.New("identity_not_found")

// IdentityService reads local records, merges live directory attributes
// and pushes profile edits back to the directory when it is reachable.
type IdentityService struct {
	Store    store.Store
	Resolver *directory.Resolver
	Client   directory.Client
}

// List returns all local records.
func (s *IdentityService) List(ctx context.Context) ([]domain.Identity, error) {
	return s.Store.Identities().ListIdentities(ctx)
}

// Profile returns the local record for key merged with live directory
// attributes. The merge is best effort: the local record is served even
// when the directory cannot answer.
func (s *IdentityService) Profile(ctx context.Context, key string) (domain.Profile, error) {
	identity, err := s.Store.Identities().GetIdentityByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, ErrIdentityNotFound
		}
		return domain.Profile{}, err
	}

	profile := domain.Profile{Identity: identity}
	scope := directory.ScopeFromContext(ctx)
	if dir, err := s.Resolver.Resolve(ctx, scope, key); err == nil {
		profile.Directory = dir
	} else {
		slogx.FromContext(ctx).Warn("attribute merge skipped",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return profile, nil
}

// UpdateProfile applies upd to the local record, then mirrors the mapped
// fields to the directory entry. The local store is authoritative for
// the profile; the write-back is best effort.
func (s *IdentityService) UpdateProfile(ctx context.Context, key string, upd domain.ProfileUpdate) (domain.Identity, error) {
	identity, err := s.Store.Identities().GetIdentityByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrIdentityNotFound
		}
		return domain.Identity{}, err
	}

	if err := s.Store.Identities().UpdateProfile(ctx, identity.ID, upd); err != nil {
		return domain.Identity{}, err
	}

	updated, err := s.Store.Identities().GetIdentityByID(ctx, identity.ID)
	if err != nil {
		return domain.Identity{}, err
	}

	s.writeBack(ctx, updated)
	return updated, nil
}

// writeBack mirrors the mapped profile fields onto the directory entry.
func (s *IdentityService) writeBack(ctx context.Context, identity domain.Identity) {
	l := slogx.FromContext(ctx)

	dir, err := s.Resolver.Resolve(ctx, directory.NewScope(), identity.ExternalKey)
	if err != nil {
		l.Warn("write-back skipped, subject not resolvable",
			slog.String("key", identity.ExternalKey), slog.String("error", err.Error()))
		return
	}

	attrs := map[string][]string{}
	if identity.FirstNameEN != "" {
		attrs["givenName"] = []string{identity.FirstNameEN}
	}
	if identity.LastNameEN != "" {
		attrs["sn"] = []string{identity.LastNameEN}
	}
	if name := identity.FullNameEN(); name != "" {
		attrs["displayName"] = []string{name}
	}
	if identity.JobTitle != "" {
		attrs["title"] = []string{identity.JobTitle}
	}
	if identity.Department != "" {
		attrs["department"] = []string{identity.Department}
	}

	if err := s.Client.ModifyAttributes(ctx, dir.DistinguishedName, attrs); err != nil {
		l.Warn("write-back failed",
			slog.String("key", identity.ExternalKey), slog.String("error", err.Error()))
	}
}
