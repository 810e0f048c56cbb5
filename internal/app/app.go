// Package app wires configuration to the concrete stores, queue drivers and
// notifiers shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/notify"
	"github.com/ukydev/vehicle-maintenance/internal/queue"
	"github.com/ukydev/vehicle-maintenance/internal/report"
)

// queueConnectTimeout bounds how long a binary waits for NATS at startup.
const queueConnectTimeout = 30 * time.Second

// Stores holds the Mongo-backed record, user and report stores.
type Stores struct {
	Client      *mongo.Client
	Vehicles    *db.MongoVehicleCollection
	Maintenance *db.MongoMaintenanceCollection
	Users       *db.MongoUserCollection
	Reports     *db.GridFSReportStore
}

// OpenStores connects to MongoDB, ensures indexes and opens the report bucket.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	reports, err := db.NewGridFSReportStore(database)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Stores{
		Client:      client,
		Vehicles:    &db.MongoVehicleCollection{Collection: database.Collection(db.VehiclesCollectionName)},
		Maintenance: &db.MongoMaintenanceCollection{Collection: database.Collection(db.MaintenanceCollectionName)},
		Users:       &db.MongoUserCollection{Collection: database.Collection(db.UsersCollectionName)},
		Reports:     reports,
	}, nil
}

// Ping reports whether the primary is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (s *Stores) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// OpenQueue returns the queue driver selected by QUEUE_DRIVER.
func OpenQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.QueueDriver {
	case config.QueueDriverMemory:
		return queue.NewMemory(cfg.VisibilityTimeout, cfg.Retention), nil
	case config.QueueDriverNATS:
		q, err := queue.ConnectJetStreamWithRetry(queue.JetStreamConfig{
			URL:               cfg.NATSURL,
			VisibilityTimeout: cfg.VisibilityTimeout,
			Retention:         cfg.Retention,
		}, queueConnectTimeout)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}

// OpenNotifier connects to the MQTT broker when one is configured. Without a
// broker reports are stored silently. The returned func releases the client.
func OpenNotifier(cfg *config.Config, clientID string, logger logrus.FieldLogger) (report.Notifier, func(), error) {
	if cfg.MQTTBroker == "" {
		logger.Info("MQTT_BROKER not set, report notifications disabled")
		return notify.Noop{}, func() {}, nil
	}
	n, err := notify.ConnectMQTT(cfg.MQTTBroker, clientID, cfg.MQTTTopicPrefix)
	if err != nil {
		return nil, nil, err
	}
	logger.WithFields(logrus.Fields{"broker": cfg.MQTTBroker, "topic_prefix": cfg.MQTTTopicPrefix}).Info("report notifications enabled")
	return n, n.Close, nil
}

// NewWorker builds a report worker with the configured timings.
func NewWorker(cfg *config.Config, q queue.Queue, store db.ReportStore, notifier report.Notifier, logger logrus.FieldLogger) *report.Worker {
	w := report.NewWorker(q, store, logger)
	w.PollWait = cfg.WorkerPollWait
	w.IdleSleep = cfg.WorkerIdleSleep
	w.MaxDeliveries = cfg.WorkerMaxDeliveries
	w.Notifier = notifier
	return w
}
