package service

import (
	"context"
	"testing"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/stretchr/testify/require"
)

const syncScope = "OU=New," + testBaseDN

func newSyncService(t *testing.T, fake *directory.Fake) *SyncService {
	t.Helper()
	return &SyncService{Directory: fake, Store: newTestStore(t)}
}

func TestSyncRun(t *testing.T) {
	ctx := context.Background()

	t.Run("creates records for new directory entries", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "alice", "OU=IT,OU=New", "")
		seedDirectoryEntry(fake, "bob", "OU=Sales,OU=New", "")
		svc := newSyncService(t, fake)

		summary, err := svc.Run(ctx, syncScope, false)
		require.NoError(t, err)
		require.Equal(t, domain.SyncSummary{Created: 2, Updated: 0, Skipped: 0, Total: 2}, summary)

		created, err := svc.Store.Identities().GetIdentityByKey(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "AD-alice", created.EmployeeID)
		require.Equal(t, "Test", created.FirstNameEN)
		require.Equal(t, "IT", created.Department)
		require.True(t, created.Active)
	})

	t.Run("is idempotent in create-only mode", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "alice", "OU=IT,OU=New", "")
		svc := newSyncService(t, fake)

		_, err := svc.Run(ctx, syncScope, false)
		require.NoError(t, err)

		summary, err := svc.Run(ctx, syncScope, false)
		require.NoError(t, err)
		require.Equal(t, domain.SyncSummary{Created: 0, Updated: 0, Skipped: 1, Total: 1}, summary)
	})

	t.Run("update mode overwrites the mapped subset only", func(t *testing.T) {
		fake := directory.NewFake()
		entry := seedDirectoryEntry(fake, "alice", "OU=IT,OU=New", "")
		svc := newSyncService(t, fake)

		_, err := svc.Run(ctx, syncScope, false)
		require.NoError(t, err)

		// Local edits to unmapped fields survive an update run.
		before, err := svc.Store.Identities().GetIdentityByKey(ctx, "alice")
		require.NoError(t, err)
		ar := "أليس"
		require.NoError(t, svc.Store.Identities().UpdateProfile(ctx, before.ID,
			domain.ProfileUpdate{FirstNameAR: &ar}))

		entry.Title = "Lead Engineer"
		fake.Add(entry, "")

		summary, err := svc.Run(ctx, syncScope, true)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Updated)

		after, err := svc.Store.Identities().GetIdentityByKey(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "Lead Engineer", after.JobTitle)
		require.Equal(t, ar, after.FirstNameAR)
	})

	t.Run("machine accounts are never considered", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "alice", "OU=IT,OU=New", "")
		seedDirectoryEntry(fake, "WORKSTATION01$", "OU=IT,OU=New", "")
		svc := newSyncService(t, fake)

		summary, err := svc.Run(ctx, syncScope, false)
		require.NoError(t, err)
		require.Equal(t, domain.SyncSummary{Created: 1, Updated: 0, Skipped: 0, Total: 1}, summary)

		_, err = svc.Store.Identities().GetIdentityByKey(ctx, "WORKSTATION01$")
		require.Error(t, err)
	})

	t.Run("never deletes local records", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "alice", "OU=IT,OU=New", "")
		svc := newSyncService(t, fake)
		seedIdentity(t, svc.Store, "departed", false)

		summary, err := svc.Run(ctx, syncScope, true)
		require.NoError(t, err)
		require.Equal(t, 2, summary.Total)

		_, err = svc.Store.Identities().GetIdentityByKey(ctx, "departed")
		require.NoError(t, err)
	})

	t.Run("fails when the directory is unreachable", func(t *testing.T) {
		fake := directory.NewFake()
		fake.Down = true
		svc := newSyncService(t, fake)

		_, err := svc.Run(ctx, syncScope, false)
		require.ErrorIs(t, err, ErrDirectoryUnavailable)
	})
}
