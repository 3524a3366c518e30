package service

import (
	"context"
	"testing"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/internal/bridge/store/drivers/sqlite"
	"github.com/corpdir/adbridge/pkg/idx"
	"github.com/stretchr/testify/require"
)

const testBaseDN = "DC=corp,DC=example,DC=com"

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedIdentity(t *testing.T, st store.Store, key string, staff bool) domain.Identity {
	t.Helper()

	id := domain.Identity{
		ID:          idx.New().String(),
		ExternalKey: key,
		EmployeeID:  "E-" + key,
		NationalID:  "N-" + key,
		FirstNameEN: "Test",
		LastNameEN:  "User",
		Active:      true,
		Staff:       staff,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.Identities().CreateIdentity(context.Background(), id))
	return id
}

func seedDirectoryEntry(fake *directory.Fake, key, ou, secret string) *domain.DirectoryIdentity {
	entry := &domain.DirectoryIdentity{
		Key:               key,
		DistinguishedName: "CN=" + key + "," + ou + "," + testBaseDN,
		GivenName:         "Test",
		Surname:           "User",
		Title:             "Engineer",
		Department:        "IT",
	}
	fake.Add(entry, secret)
	return entry
}
