package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/pkg/idx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

// SyncService reconciles local records from a directory scope. It only
// ever creates or updates; local records are never deleted, even when
// their directory entry is gone.
type SyncService struct {
	Directory directory.Client
	Store     store.Store

	// DefaultScope is the search base used when a run names no scope.
	DefaultScope string
}

// Run walks every person entry under scopeDN. In create-only mode
// (update=false) existing records are counted as skipped; with update=true
// the directory-mapped fields are overwritten. Machine accounts (keys
// ending in "$") are never considered.
func (s *SyncService) Run(ctx context.Context, scopeDN string, update bool) (domain.SyncSummary, error) {
	l := slogx.FromContext(ctx)
	var summary domain.SyncSummary

	if scopeDN == "" {
		scopeDN = s.DefaultScope
	}

	entries, err := s.Directory.SearchScope(ctx, scopeDN)
	if err != nil {
		if errors.Is(err, directory.ErrUnavailable) {
			return summary, ErrDirectoryUnavailable
		}
		return summary, err
	}

	for _, entry := range entries {
		key := entry.Key
		if key == "" || strings.HasSuffix(key, "$") {
			continue
		}

		existing, err := s.Store.Identities().GetIdentityByKey(ctx, key)
		switch {
		case err == nil:
			if !update {
				summary.Skipped++
				continue
			}
			if err := s.Store.Identities().UpdateSyncedFields(ctx, existing.ID, syncedFields(entry)); err != nil {
				l.Error("sync update failed", slog.String("key", key), slog.String("error", err.Error()))
				continue
			}
			summary.Updated++

		case errors.Is(err, store.ErrNotFound):
			if err := s.Store.Identities().CreateIdentity(ctx, newIdentity(entry)); err != nil {
				l.Error("sync create failed", slog.String("key", key), slog.String("error", err.Error()))
				continue
			}
			summary.Created++

		default:
			return summary, err
		}
	}

	total, err := s.Store.Identities().CountIdentities(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = total

	l.Info("sync finished",
		slog.String("scope", scopeDN),
		slog.Bool("update", update),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("total", summary.Total),
	)
	return summary, nil
}

// newIdentity builds a local record for a directory entry seen for the
// first time. The internal identifiers are placeholders derived from the
// key; operators replace them once the real values are known.
func newIdentity(entry *domain.DirectoryIdentity) domain.Identity {
	return domain.Identity{
		ID:          idx.New().String(),
		ExternalKey: entry.Key,
		EmployeeID:  "AD-" + entry.Key,
		NationalID:  "AD-" + entry.Key,
		FirstNameEN: entry.GivenName,
		LastNameEN:  entry.Surname,
		JobTitle:    entry.Title,
		Department:  entry.Department,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func syncedFields(entry *domain.DirectoryIdentity) domain.SyncedFields {
	return domain.SyncedFields{
		FirstNameEN: entry.GivenName,
		LastNameEN:  entry.Surname,
		JobTitle:    entry.Title,
		Department:  entry.Department,
	}
}
