package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/service"
	"github.com/BuzzLyutic/todo-api/pkg/respond"
)

type Deps struct {
	Users  *service.UserService
	Tasks  *service.TaskService
	Logger *zap.Logger
	// Ping reports storage health for /health; nil means always healthy.
	Ping func(ctx context.Context) error

	AuthRateLimit float64
	AuthRateBurst int

	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the socket
	// address. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// NewRouter собирает все маршруты API.
func NewRouter(d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Users, d.Logger)
	taskHandler := NewTaskHandler(d.Tasks, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			if err := d.Ping(r.Context()); err != nil {
				d.Logger.Error("health check failed", zap.Error(err))
				respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(d.AuthRateLimit, d.AuthRateBurst))
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(RequireUser(d.Users, d.Logger))
		r.Post("/", taskHandler.Create)
		r.Get("/", taskHandler.List)
		r.Get("/{id}", taskHandler.Get)
		r.Put("/{id}", taskHandler.Update)
		r.Delete("/{id}", taskHandler.Delete)
	})

	return r
}
