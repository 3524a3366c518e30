package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	bridgehttp "github.com/corpdir/adbridge/internal/bridge/http"
	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/internal/bridge/store/drivers/sqlite"
	"github.com/corpdir/adbridge/pkg/idx"
	"github.com/corpdir/adbridge/pkg/jwtx"
)

const (
	testIssuer = "adbridge-test"
	testBaseDN = "DC=corp,DC=example,DC=com"
)

type testEnv struct {
	router *bridgehttp.Router
	server *httptest.Server
	fake   *directory.Fake
	store  store.Store
	signer *jwtx.Signer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signer, err := jwtx.NewEphemeralSigner()
	require.NoError(t, err)
	verifier := jwtx.NewVerifier(signer, testIssuer, nil)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	fake := directory.NewFake()
	resolver := &directory.Resolver{Client: fake}
	catalog := domain.DefaultCatalog()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := bridgehttp.NewRouter(signer, verifier, st, fake, catalog, logger)
	r.AuthService = &service.AuthService{
		Directory:  fake,
		Resolver:   resolver,
		Store:      st,
		Signer:     signer,
		Issuer:     testIssuer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	r.IdentityService = &service.IdentityService{
		Store:    st,
		Resolver: resolver,
		Client:   fake,
	}
	r.TransferService = &service.TransferService{
		Directory: fake,
		Resolver:  resolver,
		Store:     st,
		Catalog:   catalog,
		BaseDN:    testBaseDN,
	}
	r.SyncService = &service.SyncService{
		Directory:    fake,
		Store:        st,
		DefaultScope: "OU=New," + testBaseDN,
	}
	r.AuditService = &service.AuditService{Store: st}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{router: r, server: srv, fake: fake, store: st, signer: signer}
}

func (e *testEnv) seedIdentity(t *testing.T, key string, staff bool) domain.Identity {
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
	require.NoError(t, e.store.Identities().CreateIdentity(context.Background(), id))
	return id
}

func (e *testEnv) seedDirectoryEntry(key, ou, secret string) *domain.DirectoryIdentity {
	entry := &domain.DirectoryIdentity{
		Key:               key,
		DistinguishedName: "CN=" + key + "," + ou + "," + testBaseDN,
		GivenName:         "Test",
		Surname:           "User",
		Title:             "Engineer",
		Department:        "IT",
	}
	e.fake.Add(entry, secret)
	return entry
}

// token mints a bearer token directly with the router's signer.
func (e *testEnv) token(t *testing.T, subject, username string, scopes ...string) string {
	t.Helper()

	claims := jwtx.NewAccessClaims(subject, username, "Test User", scopes,
		jwtx.DefaultAccessTokenTTL, testIssuer, time.Now())
	tok, err := e.signer.Sign(claims)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedIdentity(t, "jsmith", false)
	env.seedDirectoryEntry("jsmith", "OU=Sales,OU=New", "hunter2")

	t.Run("valid credentials", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"username": "jsmith",
			"password": "hunter2",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body["access_token"])
		require.NotEmpty(t, body["refresh_token"])

		profile, ok := body["profile"].(map[string]any)
		require.True(t, ok)
		identity, ok := profile["identity"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "jsmith", identity["username"])
		require.Contains(t, profile, "directory")
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"username": "jsmith",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid_credentials", body["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"username": "jsmith",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedIdentity(t, "jsmith", false)
	env.seedDirectoryEntry("jsmith", "OU=Sales,OU=New", "hunter2")

	_, login := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "jsmith",
		"password": "hunter2",
	})
	refreshToken, _ := login["refresh_token"].(string)
	require.NotEmpty(t, refreshToken)

	t.Run("rotation", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": refreshToken,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body["access_token"])
		require.NotEqual(t, refreshToken, body["refresh_token"])
	})

	t.Run("replay is rejected", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": refreshToken,
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid_refresh_token", body["error"])
	})
}

func TestIdentityEndpoints(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedIdentity(t, "jsmith", false)
	env.seedDirectoryEntry("jsmith", "OU=Sales,OU=New", "hunter2")

	readToken := env.token(t, id.ID, "jsmith", service.ScopeRead)
	writeToken := env.token(t, id.ID, "jsmith", service.ScopeRead, service.ScopeIdentity)

	t.Run("list requires token", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/v1/identities", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/v1/identities", readToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		identities, ok := body["identities"].([]any)
		require.True(t, ok)
		require.Len(t, identities, 1)
	})

	t.Run("get merges directory attributes", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/v1/identities/jsmith", readToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		dir, ok := body["directory"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "OU=Sales,OU=New", dir["org_unit_path"])
	})

	t.Run("get unknown key", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/v1/identities/ghost", readToken, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("update needs write scope", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPut, "/v1/identities/jsmith", readToken, map[string]string{
			"job_title": "Manager",
		})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("update", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/v1/identities/jsmith", writeToken, map[string]string{
			"job_title": "Manager",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "Manager", body["job_title"])

		// The edit is mirrored to the directory entry.
		require.Equal(t, "Manager", env.fake.Get("jsmith").Title)
	})

	t.Run("own profile", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/v1/profile", readToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		identity, ok := body["identity"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "jsmith", identity["username"])
	})

	t.Run("org unit catalog", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/v1/orgunits", readToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		units, ok := body["org_units"].([]any)
		require.True(t, ok)
		require.Len(t, units, 12)
	})
}

func TestTransferEndpoint(t *testing.T) {
	env := newTestEnv(t)
	staff := env.seedIdentity(t, "boss", true)
	env.seedIdentity(t, "jsmith", false)
	env.seedDirectoryEntry("jsmith", "OU=Sales,OU=New", "")

	staffToken := env.token(t, staff.ID, "boss", service.ScopeRead, service.ScopeTransfer)

	t.Run("single subject", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/transfers", staffToken, map[string]any{
			"subjects": []string{"jsmith"},
			"target":   "it",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "transferred 1 of 1", body["summary"])
		require.Equal(t, "CN=jsmith,OU=IT,OU=New,"+testBaseDN, env.fake.Get("jsmith").DistinguishedName)
	})

	t.Run("unknown target fails per item and is audited", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/transfers", staffToken, map[string]any{
			"subjects": []string{"jsmith"},
			"target":   "warehouse",
		})
		require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
		require.Equal(t, "transferred 0 of 1", body["summary"])

		results, ok := body["results"].([]any)
		require.True(t, ok)
		require.Len(t, results, 1)
		item, ok := results[0].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "unknown_target", item["error"])

		// The failed attempt leaves the entry where it was.
		require.Equal(t, "CN=jsmith,OU=IT,OU=New,"+testBaseDN, env.fake.Get("jsmith").DistinguishedName)

		resp, body = env.do(t, http.MethodGet, "/v1/transfers/audit?subject=jsmith&outcome=failed", staffToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		entries, ok := body["entries"].([]any)
		require.True(t, ok)
		require.Len(t, entries, 1)
	})

	t.Run("partial failure reports every item", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/transfers", staffToken, map[string]any{
			"subjects": []string{"jsmith", "ghost"},
			"target":   "sales",
		})
		require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
		require.Equal(t, "transferred 1 of 2", body["summary"])
		results, ok := body["results"].([]any)
		require.True(t, ok)
		require.Len(t, results, 2)
	})

	t.Run("audit trail records the attempts", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/v1/transfers/audit?subject=jsmith", staffToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		entries, ok := body["entries"].([]any)
		require.True(t, ok)
		require.Len(t, entries, 3)

		first, ok := entries[0].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "boss", first["actor"])
	})
}

func TestSyncEndpoint(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedIdentity(t, "admin", true)
	env.seedDirectoryEntry("alice", "OU=HR,OU=New", "")
	env.seedDirectoryEntry("bob", "OU=IT,OU=New", "")

	superToken := env.token(t, admin.ID, "admin", service.ScopeRead, service.ScopeSync)
	staffToken := env.token(t, admin.ID, "admin", service.ScopeRead, service.ScopeTransfer)

	t.Run("needs sync scope", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/v1/sync", staffToken, map[string]any{})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("create-only run", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/v1/sync", superToken, map[string]any{})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, float64(2), body["created"])
		require.Equal(t, float64(0), body["updated"])
	})

	t.Run("directory down", func(t *testing.T) {
		env.fake.Down = true
		defer func() { env.fake.Down = false }()

		resp, body := env.do(t, http.MethodPost, "/v1/sync", superToken, map[string]any{})
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Equal(t, "directory_unavailable", body["error"])
	})
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("livez", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ok", body["status"])
	})

	t.Run("readyz", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ok", body["status"])
	})

	t.Run("readyz degraded when directory is down", func(t *testing.T) {
		env.fake.Down = true
		defer func() { env.fake.Down = false }()

		resp, body := env.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Equal(t, "degraded", body["status"])
	})

	t.Run("jwks", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/.well-known/jwks.json", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		keys, ok := body["keys"].([]any)
		require.True(t, ok)
		require.Len(t, keys, 1)
	})
}
