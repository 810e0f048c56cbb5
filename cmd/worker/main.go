package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/app"
	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/queue"
	"github.com/ukydev/vehicle-maintenance/internal/report"
)

// pushBatchSize is the largest batch handed to the worker in push mode.
const pushBatchSize = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Report worker stopped")
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	if cfg.QueueDriver != config.QueueDriverNATS {
		return fmt.Errorf("the standalone worker needs QUEUE_DRIVER=%s, the %s queue is process-local", config.QueueDriverNATS, cfg.QueueDriver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = stores.Close(closeCtx)
	}()

	q, err := app.OpenQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()

	hostname, _ := os.Hostname()
	notifier, closeNotifier, err := app.OpenNotifier(cfg, "report-worker-"+hostname, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	worker := app.NewWorker(cfg, q, stores.Reports, notifier, logger)
	err = consume(ctx, cfg.WorkerMode, q, worker, logger)
	logger.WithField("collisions", worker.Collisions()).Info("Report worker exiting")
	return err
}

// consume runs worker against q until ctx is cancelled. In poll mode the
// worker drives the queue itself; in push mode the queue hands it batches.
func consume(ctx context.Context, mode string, q queue.Queue, worker *report.Worker, logger log.FieldLogger) error {
	var err error
	switch mode {
	case config.WorkerModePoll:
		err = worker.Run(ctx)
	case config.WorkerModePush:
		sub, ok := q.(queue.Subscriber)
		if !ok {
			return fmt.Errorf("queue driver %T does not support push mode", q)
		}
		logger.WithField("batch_size", pushBatchSize).Info("report worker subscribed")
		err = sub.Subscribe(ctx, pushBatchSize, worker.HandleBatch)
	default:
		return fmt.Errorf("unknown worker mode %q", mode)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
