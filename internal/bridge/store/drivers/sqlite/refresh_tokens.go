package sqlite

import (
	"context"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, identity_id, fingerprint, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.IdentityID, t.Fingerprint, t.ExpiresAt, t.Revoked, t.CreatedAt,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, identity_id, fingerprint, expires_at, revoked, created_at
		FROM refresh_tokens WHERE fingerprint = ?`, fingerprint,
	).Scan(&t.ID, &t.IdentityID, &t.Fingerprint, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, fingerprint string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE fingerprint = ?`, fingerprint)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
