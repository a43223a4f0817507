package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pamarcar/stays/internal/api/handlers"
	"github.com/pamarcar/stays/internal/api/middleware"
	"github.com/pamarcar/stays/internal/audit"
	"github.com/pamarcar/stays/internal/auth"
	"github.com/pamarcar/stays/internal/config"
	"github.com/pamarcar/stays/internal/domain/accounts"
	"github.com/pamarcar/stays/internal/domain/apartments"
	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/platforms"
	"github.com/pamarcar/stays/internal/domain/registries"
	"github.com/pamarcar/stays/internal/metrics"
)

// Deps carries everything the router needs. Services are injected so
// tests can run the full middleware stack against in-memory stores.
type Deps struct {
	Config    config.Config
	Logger    zerolog.Logger
	Codec     *auth.TokenCodec
	Hierarchy *auth.Hierarchy
	Audit     *audit.Logger

	Accounts   *accounts.Service
	Apartments *apartments.Service
	Platforms  *platforms.Service
	Bookings   *bookings.Service
	Registries *registries.Service

	// Health is optional; without it only the liveness probes are mounted.
	Health *handlers.HealthChecker
}

// NewRouter assembles the HTTP surface. Bearer resolution runs on every
// request; role requirements are attached per route, and the traveler
// registry creation stays deliberately anonymous.
func NewRouter(deps Deps) http.Handler {
	env := deps.Config.Environment

	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Audit, env)
	usersHandler := handlers.NewUsersHandler(deps.Accounts, env)
	apartmentsHandler := handlers.NewApartmentsHandler(deps.Apartments, env)
	platformsHandler := handlers.NewPlatformsHandler(deps.Platforms, env)
	bookingsHandler := handlers.NewBookingsHandler(deps.Bookings, env)
	registriesHandler := handlers.NewRegistriesHandler(deps.Registries, env)

	requireUser := middleware.RequireRole(deps.Hierarchy, auth.RoleUser, env)
	requireAdmin := middleware.RequireRole(deps.Hierarchy, auth.RoleAdmin, env)
	requireAdminOrSelf := middleware.RequireRoleOrSelf(deps.Hierarchy, auth.RoleAdmin, accountSelfCheck(deps.Accounts), env)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if deps.Health != nil {
		mux.Handle("/api/v1/health", deps.Health.Health())
	}

	mux.Handle("/api/v1/login", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Login),
	}))

	mux.Handle("/api/v1/users", methodMux(map[string]http.Handler{
		http.MethodGet:  requireAdmin(http.HandlerFunc(usersHandler.List)),
		http.MethodPost: requireAdmin(http.HandlerFunc(usersHandler.Create)),
	}))
	mux.Handle("/api/v1/users/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: requireAdminOrSelf(http.HandlerFunc(usersHandler.Get)),
	}))

	mux.Handle("/api/v1/apartments", methodMux(map[string]http.Handler{
		http.MethodGet:  requireUser(http.HandlerFunc(apartmentsHandler.List)),
		http.MethodPost: requireUser(http.HandlerFunc(apartmentsHandler.Create)),
	}))
	mux.Handle("/api/v1/apartments/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: requireUser(http.HandlerFunc(apartmentsHandler.Get)),
	}))

	mux.Handle("/api/v1/platforms", methodMux(map[string]http.Handler{
		http.MethodGet:  requireUser(http.HandlerFunc(platformsHandler.List)),
		http.MethodPost: requireAdmin(http.HandlerFunc(platformsHandler.Create)),
	}))
	mux.Handle("/api/v1/platforms/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: requireUser(http.HandlerFunc(platformsHandler.Get)),
	}))

	mux.Handle("/api/v1/bookings", methodMux(map[string]http.Handler{
		http.MethodGet:  requireUser(http.HandlerFunc(bookingsHandler.List)),
		http.MethodPost: requireUser(http.HandlerFunc(bookingsHandler.Create)),
	}))
	mux.Handle("/api/v1/bookings/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: requireUser(http.HandlerFunc(bookingsHandler.Get)),
	}))

	// Anonymous create: the booking reference in the payload is the
	// credential. Reads stay behind authentication.
	mux.Handle("/api/v1/registries", methodMux(map[string]http.Handler{
		http.MethodGet:  requireUser(http.HandlerFunc(registriesHandler.List)),
		http.MethodPost: http.HandlerFunc(registriesHandler.Create),
	}))
	mux.Handle("/api/v1/registries/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: requireUser(http.HandlerFunc(registriesHandler.Get)),
	}))

	var handler http.Handler = mux
	handler = middleware.BearerAuth(deps.Codec, env)(handler)
	handler = middleware.RateLimit(deps.Config.RateLimit)(handler)
	handler = middleware.RateLimitTierByPath(map[string]middleware.RateLimitTier{
		"/api/v1/login": middleware.TierLogin,
	})(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

// accountSelfCheck admits a principal reading its own account record.
func accountSelfCheck(service *accounts.Service) middleware.SelfCheck {
	return func(r *http.Request, principal *auth.Principal) bool {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			return false
		}
		return service.IsSelf(r.Context(), id, principal.Subject)
	}
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
