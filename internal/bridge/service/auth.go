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
	"github.com/corpdir/adbridge/pkg/cryptox"
	"github.com/corpdir/adbridge/pkg/idx"
	"github.com/corpdir/adbridge/pkg/jwtx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrInvalidRefresh       = errors.New("invalid_refresh_token")
	ErrDirectoryUnavailable = errors.New("directory_unavailable")
)

// Token scopes issued by the service.
const (
	ScopeRead     = "directory:read"
	ScopeTransfer = "directory:transfer"
	ScopeSync     = "directory:sync"
	ScopeIdentity = "identity:write"
)

// AuthService verifies credentials against the directory and issues
// tokens for identities that also hold a local record. The directory is
// the only credential authority; no secret material is stored locally.
type AuthService struct {
	Directory  directory.Client
	Resolver   *directory.Resolver
	Store      store.Store
	Signer     *jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// LoginResult is the payload returned after a successful login.
type LoginResult struct {
	Tokens  domain.TokenPair
	Profile domain.Profile
}

// Login checks loginID/secret against the directory and, when the
// account also has a local record, issues an access/refresh token pair.
// All denial paths collapse to ErrInvalidCredentials so the response does
// not reveal which check failed.
func (s *AuthService) Login(ctx context.Context, loginID, secret string) (*LoginResult, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Reject degenerate input before touching the directory.
	loginID = strings.TrimSpace(loginID)
	if loginID == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}

	// 2. Verify the credentials with a single-use directory bind.
	ok, err := s.Directory.AuthenticateUser(ctx, loginID, secret)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			l.Info("directory bind rejected", slog.String("login_id", loginID))
			return nil, ErrInvalidCredentials
		}
		l.Error("directory bind failed", slog.String("login_id", loginID), slog.String("error", err.Error()))
		return nil, ErrDirectoryUnavailable
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	// 3. A local record is required. Directory credentials alone do not
	// grant access to this system.
	identity, err := s.Store.Identities().GetIdentityByKey(ctx, loginID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("directory bind succeeded but no local record", slog.String("login_id", loginID))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !identity.Active {
		l.Info("login for deactivated identity", slog.String("login_id", loginID))
		return nil, ErrInvalidCredentials
	}

	// 4. Merge live directory attributes, best effort. The login already
	// succeeded; a flaky attribute read must not undo it.
	profile := domain.Profile{Identity: identity}
	scope := directory.ScopeFromContext(ctx)
	if dir, err := s.Resolver.Resolve(ctx, scope, identity.ExternalKey); err == nil {
		profile.Directory = dir
	} else {
		l.Warn("attribute merge skipped", slog.String("login_id", loginID), slog.String("error", err.Error()))
	}

	// 5. Issue the token pair.
	tokens, err := s.issueTokens(ctx, identity, now)
	if err != nil {
		return nil, err
	}

	l.Info("login succeeded", slog.String("login_id", loginID), slog.String("identity_id", identity.ID))
	return &LoginResult{Tokens: *tokens, Profile: profile}, nil
}

// Refresh rotates a refresh token and issues a new access token. The
// presented token is revoked even when a new one is minted, so a replayed
// value is dead on arrival.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}
	fingerprint := cryptox.FingerprintToken(refreshToken)

	var result *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		stored, err := tx.RefreshTokens().GetRefreshTokenByFingerprint(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if stored.Revoked || now.After(stored.ExpiresAt) {
			return ErrInvalidRefresh
		}

		identity, err := tx.Identities().GetIdentityByID(ctx, stored.IdentityID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if !identity.Active {
			return ErrInvalidRefresh
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fingerprint); err != nil {
			return err
		}

		pair, err := s.mintPair(ctx, tx, identity, now)
		if err != nil {
			return err
		}
		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Logout revokes the presented refresh token. Unknown tokens are not an
// error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(refreshToken))
}

func (s *AuthService) issueTokens(ctx context.Context, identity domain.Identity, now time.Time) (*domain.TokenPair, error) {
	var result *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		pair, err := s.mintPair(ctx, tx, identity, now)
		if err != nil {
			return err
		}
		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AuthService) mintPair(ctx context.Context, tx store.Tx, identity domain.Identity, now time.Time) (*domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(
		identity.ID,
		identity.ExternalKey,
		identity.FullNameEN(),
		scopesFor(identity),
		s.AccessTTL,
		s.Issuer,
		now,
	)

	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	refresh := domain.RefreshToken{
		ID:          idx.New().String(),
		IdentityID:  identity.ID,
		Fingerprint: cryptox.FingerprintToken(opaque),
		ExpiresAt:   now.Add(s.RefreshTTL),
		CreatedAt:   now,
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		ExpiresAt:    now.Add(s.AccessTTL),
	}, nil
}

func scopesFor(identity domain.Identity) []string {
	scopes := []string{ScopeRead}
	if identity.Staff || identity.Superuser {
		scopes = append(scopes, ScopeTransfer, ScopeIdentity)
	}
	if identity.Superuser {
		scopes = append(scopes, ScopeSync)
	}
	return scopes
}
