package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/app"
	"github.com/ukydev/vehicle-maintenance/internal/auth"
	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/handlers"
	"github.com/ukydev/vehicle-maintenance/internal/queue"
	"github.com/ukydev/vehicle-maintenance/internal/service"
)

const shutdownTimeout = 10 * time.Second

// dependencies are the stores and the publisher behind the HTTP surface.
type dependencies struct {
	Users       db.UserCollection
	Vehicles    db.VehicleCollection
	Maintenance db.MaintenanceCollection
	Reports     db.ReportStore
	Publisher   service.Publisher
	Health      func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("API server stopped")
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = stores.Close(closeCtx)
	}()
	logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	q, err := app.OpenQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()
	logger.WithField("driver", cfg.QueueDriver).Info("Event queue ready")

	// The memory queue only exists inside this process, so its consumer has
	// to run here as well.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		stopWorker()
		wg.Wait()
	}()
	if cfg.QueueDriver == config.QueueDriverMemory {
		notifier, closeNotifier, err := app.OpenNotifier(cfg, "vehicle-maintenance-api", logger)
		if err != nil {
			return err
		}
		defer closeNotifier()
		worker := app.NewWorker(cfg, q, stores.Reports, notifier, logger.WithField("component", "report-worker"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.Run(workerCtx); err != nil && !errors.Is(err, queue.ErrClosed) {
				logger.WithError(err).Error("In-process report worker stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: newHandler(cfg, dependencies{
			Users:       stores.Users,
			Vehicles:    stores.Vehicles,
			Maintenance: stores.Maintenance,
			Reports:     stores.Reports,
			Publisher:   q,
			Health:      stores.Ping,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newHandler builds the services and the router over deps.
func newHandler(cfg *config.Config, deps dependencies, logger log.FieldLogger) http.Handler {
	vehicles := service.NewVehicleService(deps.Vehicles, logger)
	maintenance := service.NewMaintenanceService(deps.Maintenance, deps.Vehicles, deps.Publisher, logger)
	maintenance.IntervalMonths = cfg.ServiceIntervalMonths

	return handlers.NewRouter(handlers.RouterConfig{
		Auth:              auth.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		Users:             deps.Users,
		Vehicles:          vehicles,
		Maintenance:       maintenance,
		Reports:           deps.Reports,
		Logger:            logger,
		Health:            deps.Health,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})
}
