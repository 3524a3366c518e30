package store

import (
	"context"
	"errors"

	"github.com/corpdir/adbridge/internal/bridge/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement
// this. It exposes sub-repositories to keep concerns tidy and testable.
type Store interface {
	Identities() Identities
	TransferAudit() TransferAudit
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetIdentityByID returns an identity by id.
	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)

	// GetIdentityByKey returns an identity by its external directory key.
	GetIdentityByKey(ctx context.Context, key string) (domain.Identity, error)

	// CreateIdentity inserts a new identity (id is provided by app via ULID).
	CreateIdentity(ctx context.Context, id domain.Identity) error

	// UpdateProfile applies the non-nil fields of upd and bumps updated_at.
	UpdateProfile(ctx context.Context, identityID string, upd domain.ProfileUpdate) error

	// UpdateSyncedFields overwrites the directory-mapped subset and bumps
	// updated_at. Used by synchronization in update mode.
	UpdateSyncedFields(ctx context.Context, identityID string, f domain.SyncedFields) error

	// ListIdentities returns non-superuser identities ordered by external key.
	ListIdentities(ctx context.Context) ([]domain.Identity, error)

	// CountIdentities returns the number of local records.
	CountIdentities(ctx context.Context) (int, error)
}

type TransferAudit interface {
	// AppendEntry writes one immutable transfer record. Entries are never
	// updated or deleted.
	AppendEntry(ctx context.Context, e domain.TransferAuditEntry) error

	// QueryEntries returns matching entries, newest first.
	QueryEntries(ctx context.Context, f domain.AuditFilter) ([]domain.TransferAuditEntry, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByFingerprint returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1 for the fingerprint.
	RevokeRefreshToken(ctx context.Context, fingerprint string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
