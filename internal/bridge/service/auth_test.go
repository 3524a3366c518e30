package service

import (
	"context"
	"testing"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, fake *directory.Fake) *AuthService {
	t.Helper()

	signer, err := jwtx.NewEphemeralSigner()
	require.NoError(t, err)

	return &AuthService{
		Directory:  fake,
		Resolver:   &directory.Resolver{Client: fake},
		Store:      newTestStore(t),
		Signer:     signer,
		Issuer:     "adbridge-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds with directory credentials and local record", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "jsmith", "OU=IT,OU=New", "secret")
		svc := newAuthService(t, fake)
		seedIdentity(t, svc.Store, "jsmith", false)

		res, err := svc.Login(ctx, "jsmith", "secret")
		require.NoError(t, err)
		require.NotEmpty(t, res.Tokens.AccessToken)
		require.NotEmpty(t, res.Tokens.RefreshToken)
		require.Equal(t, "jsmith", res.Profile.Identity.ExternalKey)

		// Live directory attributes were merged.
		require.NotNil(t, res.Profile.Directory)
		require.Equal(t, "OU=IT,OU=New", res.Profile.Directory.OrgUnitPath())

		// The access token verifies against the signer's key.
		v := jwtx.NewVerifier(svc.Signer, svc.Issuer, nil)
		claims, err := v.Verify(res.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "jsmith", claims.Username)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "jsmith", "OU=IT,OU=New", "secret")
		svc := newAuthService(t, fake)
		seedIdentity(t, svc.Store, "jsmith", false)

		_, err := svc.Login(ctx, "jsmith", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejects empty credentials without a directory call", func(t *testing.T) {
		fake := directory.NewFake()
		svc := newAuthService(t, fake)

		_, err := svc.Login(ctx, "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.Zero(t, fake.FindCalls)
	})

	t.Run("rejects directory account without local record", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "ghost", "OU=IT,OU=New", "secret")
		svc := newAuthService(t, fake)

		_, err := svc.Login(ctx, "ghost", "secret")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("reports unavailable directory distinctly", func(t *testing.T) {
		fake := directory.NewFake()
		svc := newAuthService(t, fake)
		fake.Down = true

		_, err := svc.Login(ctx, "jsmith", "secret")
		require.ErrorIs(t, err, ErrDirectoryUnavailable)
	})

	t.Run("succeeds even when attribute merge fails after bind", func(t *testing.T) {
		fake := directory.NewFake()
		seedDirectoryEntry(fake, "jsmith", "OU=IT,OU=New", "secret")
		svc := newAuthService(t, fake)
		seedIdentity(t, svc.Store, "jsmith", false)

		// Attribute reads fail, the bind does not.
		svc.Resolver = &directory.Resolver{Client: mergeFailClient{fake}}

		res, err := svc.Login(ctx, "jsmith", "secret")
		require.NoError(t, err)
		require.NotEmpty(t, res.Tokens.AccessToken)
		require.Nil(t, res.Profile.Directory)
	})
}

// mergeFailClient binds fine but never answers attribute lookups.
type mergeFailClient struct{ *directory.Fake }

func (c mergeFailClient) FindByKey(ctx context.Context, key string) (*domain.DirectoryIdentity, error) {
	return nil, directory.ErrUnavailable
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	fake := directory.NewFake()
	seedDirectoryEntry(fake, "jsmith", "OU=IT,OU=New", "secret")
	svc := newAuthService(t, fake)
	seedIdentity(t, svc.Store, "jsmith", false)

	res, err := svc.Login(ctx, "jsmith", "secret")
	require.NoError(t, err)

	t.Run("rotates refresh token", func(t *testing.T) {
		pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

		// The old value is unusable after rotation.
		_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "nonsense")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		res2, err := svc.Login(ctx, "jsmith", "secret")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, res2.Tokens.RefreshToken))
		_, err = svc.Refresh(ctx, res2.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestScopesFollowFlags(t *testing.T) {
	ctx := context.Background()

	fake := directory.NewFake()
	seedDirectoryEntry(fake, "admin", "OU=IT,OU=New", "secret")
	svc := newAuthService(t, fake)
	seedIdentity(t, svc.Store, "admin", true)

	res, err := svc.Login(ctx, "admin", "secret")
	require.NoError(t, err)

	v := jwtx.NewVerifier(svc.Signer, svc.Issuer, nil)
	claims, err := v.Verify(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.Scopes, ScopeTransfer)
	require.NotContains(t, claims.Scopes, ScopeSync) // superuser only
}
