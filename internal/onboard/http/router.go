package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shiftlane/onboard/internal/onboard/service"
	"github.com/shiftlane/onboard/internal/onboard/store"
	"github.com/shiftlane/onboard/pkg/httpx"
	"github.com/shiftlane/onboard/pkg/slogx"

	_ "github.com/shiftlane/onboard/api/onboard" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	authSecret   []byte
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	InvitationService  *service.InvitationService
	JoinRequestService *service.JoinRequestService
	OnboardingService  *service.OnboardingService
}

func NewRouter(
	authSecret []byte,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		authSecret:   authSecret,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerInvitations()
	r.registerJoin()
	r.registerJoinRequests()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Shiftlane Onboarding Service API
//	@version		0.1.0
//	@description	Multi-tenant onboarding: invitation codes, share links, QR bulk codes, and join-request review.
//
//	@contact.name				Shiftlane Team
//	@contact.url				https://github.com/shiftlane/onboard
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.authSecret, r.issuer)
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{InvitationService: r.InvitationService}

	// Invitation management is a tenant-admin surface.
	r.Mux.Handle("POST /v1/invitations",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/invitations/bulk",
		httpx.Chain(http.HandlerFunc(h.HandleCreateBulk),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/invitations",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/invitations/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleCancel),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerJoin() {
	h := &JoinHandler{Onboarding: r.OnboardingService}

	// Public previews - strict IP rate limit, an 8-char code is guessable
	// if we let anyone hammer this.
	r.Mux.Handle("GET /v1/join/{code}",
		httpx.Chain(http.HandlerFunc(h.HandlePreview),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/join/link/{token}",
		httpx.Chain(http.HandlerFunc(h.HandlePreviewLink),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Redemption requires an authenticated user.
	r.Mux.Handle("POST /v1/join/{code}",
		httpx.Chain(http.HandlerFunc(h.HandleRedeem),
			r.authn(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerJoinRequests() {
	h := &JoinRequestsHandler{
		Onboarding:         r.OnboardingService,
		JoinRequestService: r.JoinRequestService,
	}

	r.Mux.Handle("POST /v1/join-requests",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authn(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/join-requests/mine",
		httpx.Chain(http.HandlerFunc(h.HandleListMine),
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Review surface is admin only.
	r.Mux.Handle("GET /v1/join-requests",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/join-requests/{id}/approve",
		httpx.Chain(http.HandlerFunc(h.HandleApprove),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/join-requests/{id}/reject",
		httpx.Chain(http.HandlerFunc(h.HandleReject),
			r.authn(),
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
