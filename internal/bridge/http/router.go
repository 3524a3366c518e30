// Package http wires the service endpoints: authentication, identity
// reads and edits, organizational-unit transfers, audit queries and the
// reconciliation trigger.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/pkg/httpx"
	"github.com/corpdir/adbridge/pkg/jwtx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

// Router holds shared dependencies for the HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier  jwtx.Verifier
	signer    *jwtx.Signer
	startTime time.Time
	logger    *slog.Logger
	validate  *validator.Validate

	store     store.Store
	directory directory.Client
	catalog   *domain.Catalog

	AuthService     *service.AuthService
	IdentityService *service.IdentityService
	TransferService *service.TransferService
	SyncService     *service.SyncService
	AuditService    *service.AuditService
}

func NewRouter(
	signer *jwtx.Signer,
	verifier jwtx.Verifier,
	st store.Store,
	dir directory.Client,
	catalog *domain.Catalog,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  verifier,
		signer:    signer,
		startTime: time.Now(),
		logger:    logger,
		validate:  validator.New(),
		store:     st,
		directory: dir,
		catalog:   catalog,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		resolutionScopeMiddleware,
	}

	return r
}

// resolutionScopeMiddleware gives every request its own attribute
// resolution scope, so nothing read for one request leaks into another.
func resolutionScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := directory.WithScope(r.Context(), directory.NewScope())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerIdentities()
	r.registerTransfers()
	r.registerSync()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{AuthService: r.AuthService, Validate: r.validate}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	refresh := &RefreshHandler{AuthService: r.AuthService, Validate: r.validate}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	logout := &LogoutHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerIdentities() {
	list := &IdentityListHandler{IdentityService: r.IdentityService}
	r.Mux.Handle("GET /v1/identities",
		httpx.Chain(list,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(service.ScopeRead),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)

	get := &IdentityGetHandler{IdentityService: r.IdentityService}
	r.Mux.Handle("GET /v1/identities/{key}",
		httpx.Chain(get,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(service.ScopeRead),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)

	update := &IdentityUpdateHandler{IdentityService: r.IdentityService, Validate: r.validate}
	r.Mux.Handle("PUT /v1/identities/{key}",
		httpx.Chain(update,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(service.ScopeIdentity),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	profile := &ProfileHandler{IdentityService: r.IdentityService}
	r.Mux.Handle("GET /v1/profile",
		httpx.Chain(profile,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /v1/orgunits",
		httpx.Chain(OrgUnitsHandler(r.catalog),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerTransfers() {
	transfer := &TransferHandler{TransferService: r.TransferService, Validate: r.validate}
	r.Mux.Handle("POST /v1/transfers",
		httpx.Chain(transfer,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(service.ScopeTransfer),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	audit := &AuditHandler{AuditService: r.AuditService}
	r.Mux.Handle("GET /v1/transfers/audit",
		httpx.Chain(audit,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(service.ScopeTransfer),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSync() {
	sync := &SyncHandler{SyncService: r.SyncService, Validate: r.validate}
	r.Mux.Handle("POST /v1/sync",
		httpx.Chain(sync,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(service.ScopeSync),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.store, r.directory))
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
