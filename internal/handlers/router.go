package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/auth"
	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/middleware"
)

// RouterConfig wires the HTTP surface to its collaborators.
type RouterConfig struct {
	Auth        *auth.Service
	Users       db.UserCollection
	Vehicles    VehicleService
	Maintenance MaintenanceService
	Reports     db.ReportStore
	Logger      logrus.FieldLogger

	// Health reports whether dependencies are reachable. Nil means always healthy.
	Health func(ctx context.Context) error

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the API router. Every route except login, register and
// health requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Auth, cfg.Users, cfg.Logger)
	vehicleHandler := NewVehicleHandler(cfg.Vehicles, cfg.Logger)
	maintenanceHandler := NewMaintenanceHandler(cfg.Maintenance, cfg.Logger)
	reportHandler := NewReportHandler(cfg.Reports, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewAuthMiddleware(cfg.Auth).Authenticate)

	r.Get("/health", health(cfg.Health))

	r.Route("/auth", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.NewRateLimitMiddleware().RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/profile", authHandler.GetProfile)
		r.Post("/logout", authHandler.Logout)
		r.Post("/change-password", authHandler.ChangePassword)
	})

	r.Route("/vehicles", func(r chi.Router) {
		r.Post("/", vehicleHandler.Create)
		r.Get("/", vehicleHandler.List)
		r.Get("/count", vehicleHandler.Count)
		r.Get("/{id}", vehicleHandler.Get)
		r.Put("/{id}", vehicleHandler.Update)
		r.Delete("/{id}", vehicleHandler.Delete)
	})
	r.Get("/vehiclesList", vehicleHandler.ListSummaries)

	r.Route("/maintenance", func(r chi.Router) {
		r.Post("/", maintenanceHandler.Create)
		r.Get("/", maintenanceHandler.List)
		r.Get("/count", maintenanceHandler.Count)
		r.Get("/upcoming/count", maintenanceHandler.CountUpcoming)
		r.Put("/{id}", maintenanceHandler.Update)
		r.Delete("/{id}", maintenanceHandler.Delete)
	})

	r.Get("/api/reports", reportHandler.List)
	r.Get("/api/reports/*", reportHandler.Get)

	return r
}

func health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
