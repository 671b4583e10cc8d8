package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/pkg/httpx"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AccountService *service.AccountService
	TokenService   *service.TokenService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
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
	r.registerUsers()
	r.registerPasswords()
	r.registerTokens()
	r.registerEmail()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	registerHandler := &RegisterHandler{AccountService: r.AccountService}
	loginHandler := &LoginHandler{AccountService: r.AccountService}

	// POST /users/register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/users/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /users/login - strict rate limit by IP + username to slow brute force
	r.Mux.Handle("POST /v1/users/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
}

func (r *Router) registerPasswords() {
	forgotHandler := &PasswordForgotHandler{AccountService: r.AccountService}
	resetHandler := &PasswordResetHandler{TokenService: r.TokenService}

	// POST /users/password/forgot - strict rate limit (sends mail)
	r.Mux.Handle("POST /v1/users/password/forgot",
		httpx.Chain(forgotHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /tokens/password - strict rate limit (token guessing surface)
	r.Mux.Handle("POST /v1/tokens/password",
		httpx.Chain(resetHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTokens() {
	redeemHandler := &TokenRedeemHandler{TokenService: r.TokenService}

	// GET /tokens/redeem - moderate rate limit (link clicked from mail)
	r.Mux.Handle("GET /v1/tokens/redeem",
		httpx.Chain(redeemHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerEmail() {
	h := &EmailChangeHandler{AccountService: r.AccountService}

	// POST /users/email - strict rate limit (sends mail, session required)
	r.Mux.Handle("POST /v1/users/email",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
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
