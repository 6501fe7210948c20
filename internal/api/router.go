package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/taskflow-api/internal/api/handlers"
	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/auth"
	"github.com/isdelr/taskflow-api/internal/config"
	"github.com/isdelr/taskflow-api/internal/services"
	"github.com/isdelr/taskflow-api/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the router wires into handlers. Stats
// and DB only feed the health endpoint and may be nil.
type Dependencies struct {
	Users  services.UserServiceProvider
	Tasks  services.TaskServiceProvider
	Events services.EventServiceProvider
	Tokens *auth.TokenIssuer
	Guard  *auth.Guard
	Hub    *websocket.Hub
	Stats  handlers.ProcessStatsSource
	DB     handlers.Pinger
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(accessLog)
	r.Use(recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Tokens)
	taskHandler := handlers.NewTaskHandler(deps.Tasks)
	eventHandler := handlers.NewEventHandler(deps.Events)
	healthHandler := handlers.NewHealthHandler(deps.Stats, deps.DB)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Guard, cfg.AllowedOrigins)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(routeNotFound)
		r.MethodNotAllowed(routeNotFound)

		r.Get("/health", healthHandler.Get)

		// WebSocket connection endpoint, authenticated by query token
		r.Get("/ws", wsHandler.Serve)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.With(deps.Guard.Middleware).Get("/me", userHandler.GetMe)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Middleware)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.GetAll)
				r.Post("/", taskHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.Get)
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
				})
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", userHandler.GetProfile)
				r.Put("/profile", userHandler.UpdateProfile)
				r.Put("/change-password", userHandler.ChangePassword)
			})

			r.Get("/activity", eventHandler.GetRecent)
		})
	})

	if cfg.StaticDir != "" {
		r.Get("/*", spaHandler(cfg.StaticDir))
	}

	return r
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, http.StatusNotFound, "Route "+r.URL.RequestURI()+" not found.")
}

// accessLog writes one structured line per request.
func accessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Error()
		}
		event.
			Str("req_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
}

// recoverer turns panics into a 500 envelope. The stack is logged, never
// sent to the client.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				hlog.FromRequest(r).Error().
					Interface("panic", rvr).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("Unhandled panic")
				respond.Error(w, http.StatusInternalServerError, "An unexpected error occurred.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
