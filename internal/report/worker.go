package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"github.com/ukydev/vehicle-maintenance/internal/queue"
)

// Notifier is told about every stored report.
type Notifier interface {
	ReportReady(ctx context.Context, ownerID, key string) error
}

// Worker consumes maintenance events and stores one report per event.
// Delivery is at least once: a message is acknowledged only after its report
// was written, so a crash or store failure leads to redelivery.
type Worker struct {
	// Now stamps report keys.
	Now func() time.Time
	// PollWait is how long one Receive waits for a message.
	PollWait time.Duration
	// IdleSleep is the pause after an empty poll or a receive error.
	IdleSleep time.Duration
	// MaxDeliveries is the delivery count at which an unparseable message is
	// dead-lettered. Zero disables dead-lettering.
	MaxDeliveries int
	// Notifier is optional.
	Notifier Notifier

	queue  queue.Queue
	store  db.ReportStore
	logger logrus.FieldLogger

	collisions atomic.Int64
}

// NewWorker returns a worker with the default timings.
func NewWorker(q queue.Queue, store db.ReportStore, logger logrus.FieldLogger) *Worker {
	return &Worker{
		Now:           func() time.Time { return time.Now().UTC() },
		PollWait:      10 * time.Second,
		IdleSleep:     5 * time.Second,
		MaxDeliveries: 5,
		queue:         q,
		store:         store,
		logger:        logger,
	}
}

// Collisions returns how many stored reports replaced an existing one.
func (w *Worker) Collisions() int64 {
	return w.collisions.Load()
}

// Run polls the queue until ctx is cancelled or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithField("poll_wait", w.PollWait).Info("report worker started")
	defer w.logger.Info("report worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		msg, err := w.queue.Receive(ctx, w.PollWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, queue.ErrClosed) {
				return err
			}
			w.logger.WithError(err).Error("receive failed")
			w.sleep(ctx)
			continue
		}
		if msg == nil {
			w.logger.Debug("no messages to process")
			w.sleep(ctx)
			continue
		}
		// Failures are logged in Process and recovered by redelivery.
		_ = w.Process(ctx, msg)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.IdleSleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Process handles one delivery and acknowledges it once the report is stored.
// On error the message is left unacknowledged and will be redelivered.
func (w *Worker) Process(ctx context.Context, msg *queue.Message) error {
	ack, err := w.handle(ctx, msg)
	if err != nil || !ack {
		return err
	}
	if err := w.queue.Acknowledge(ctx, msg.Receipt); err != nil {
		w.logger.WithError(err).WithField("message_id", msg.ID).Error("acknowledge failed")
		return err
	}
	return nil
}

// HandleBatch processes a batch delivered by a queue subscription and returns
// the ids of the messages that should be redelivered. Acknowledgement of the
// others is left to the caller.
func (w *Worker) HandleBatch(ctx context.Context, msgs []queue.Message) []string {
	var failed []string
	for i := range msgs {
		if _, err := w.handle(ctx, &msgs[i]); err != nil {
			failed = append(failed, msgs[i].ID)
		}
	}
	return failed
}

// handle does everything but the acknowledgement. ack is false when the
// message was dead-lettered and must not be acknowledged again.
func (w *Worker) handle(ctx context.Context, msg *queue.Message) (ack bool, err error) {
	logger := w.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"deliveries": msg.Deliveries,
	})

	event, err := parseEvent(msg.Body)
	if err != nil {
		return false, w.parseFailure(ctx, msg, logger, err)
	}

	body, err := json.Marshal(Generate(SnapshotsFromEvent(event)))
	if err != nil {
		return false, err
	}
	key := Key(event.OwnerID, w.Now())
	logger = logger.WithFields(logrus.Fields{"owner_id": event.OwnerID, "key": key})

	replaced, err := w.store.PutReport(ctx, key, body)
	if err != nil {
		logger.WithError(err).Warn("report store write failed, leaving message for redelivery")
		return false, err
	}
	if replaced {
		w.collisions.Add(1)
		logger.Warn("report key collision: an existing report was overwritten")
	}
	logger.Info("report stored")

	if w.Notifier != nil {
		if err := w.Notifier.ReportReady(ctx, event.OwnerID, key); err != nil {
			logger.WithError(err).Warn("report notification failed")
		}
	}
	return true, nil
}

func parseEvent(body []byte) (models.MaintenanceEvent, error) {
	var event models.MaintenanceEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}
	if event.OwnerID == "" {
		return event, fmt.Errorf("%w: missing owner_id", errs.ErrParse)
	}
	return event, nil
}

// parseFailure leaves a malformed message for redelivery until it has been
// delivered MaxDeliveries times, then moves it to the dead-letter queue.
func (w *Worker) parseFailure(ctx context.Context, msg *queue.Message, logger logrus.FieldLogger, cause error) error {
	if w.MaxDeliveries <= 0 || msg.Deliveries < w.MaxDeliveries {
		logger.WithError(cause).Error("malformed message, leaving for redelivery")
		return cause
	}
	if err := w.queue.DeadLetter(ctx, msg, cause.Error()); err != nil {
		logger.WithError(err).Error("dead-letter failed")
		return fmt.Errorf("dead-letter %s: %w", msg.ID, err)
	}
	logger.WithError(cause).Warn("malformed message moved to dead-letter queue")
	return nil
}
