package app

import (
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/db/mocks"
	"github.com/ukydev/vehicle-maintenance/internal/notify"
	"github.com/ukydev/vehicle-maintenance/internal/queue"
)

func TestOpenQueue_Memory(t *testing.T) {
	cfg := &config.Config{QueueDriver: config.QueueDriverMemory, VisibilityTimeout: time.Minute, Retention: time.Hour}

	q, err := OpenQueue(cfg)
	require.NoError(t, err)
	defer q.Close()

	_, ok := q.(*queue.Memory)
	assert.True(t, ok)
	_, ok = q.(queue.Subscriber)
	assert.True(t, ok)
}

func TestOpenQueue_UnknownDriver(t *testing.T) {
	q, err := OpenQueue(&config.Config{QueueDriver: "sqs"})
	assert.Error(t, err)
	assert.Nil(t, q)
}

func TestOpenNotifier_WithoutBroker(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	n, closeFn, err := OpenNotifier(&config.Config{}, "test", logger)
	require.NoError(t, err)
	closeFn()

	assert.Equal(t, notify.Noop{}, n)
	assert.Equal(t, "MQTT_BROKER not set, report notifications disabled", hook.LastEntry().Message)
}

func TestNewWorker_AppliesConfig(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	cfg := &config.Config{WorkerPollWait: 2 * time.Second, WorkerIdleSleep: time.Second, WorkerMaxDeliveries: 7}

	w := NewWorker(cfg, queue.NewMemory(time.Minute, time.Hour), new(mocks.ReportStore), notify.Noop{}, logger)

	assert.Equal(t, 2*time.Second, w.PollWait)
	assert.Equal(t, time.Second, w.IdleSleep)
	assert.Equal(t, 7, w.MaxDeliveries)
	assert.Equal(t, notify.Noop{}, w.Notifier)
}
