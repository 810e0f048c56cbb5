package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "QUEUE_DRIVER", "QUEUE_VISIBILITY_TIMEOUT", "WORKER_POLL_WAIT", "SERVICE_INTERVAL_MONTHS"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, QueueDriverNATS, cfg.QueueDriver)
	assert.Equal(t, 60*time.Second, cfg.VisibilityTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, 10*time.Second, cfg.WorkerPollWait)
	assert.Equal(t, 5, cfg.WorkerMaxDeliveries)
	assert.Equal(t, 6, cfg.ServiceIntervalMonths)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUEUE_DRIVER", "memory")
	t.Setenv("QUEUE_VISIBILITY_TIMEOUT", "2m")
	t.Setenv("QUEUE_RETENTION", "2d")
	t.Setenv("WORKER_MAX_DELIVERIES", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, QueueDriverMemory, cfg.QueueDriver)
	assert.Equal(t, 2*time.Minute, cfg.VisibilityTimeout)
	assert.Equal(t, 48*time.Hour, cfg.Retention)
	assert.Equal(t, 5, cfg.WorkerMaxDeliveries, "bad ints fall back")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in       string
		expected time.Duration
		wantErr  bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDuration_RejectsNonPositive(t *testing.T) {
	t.Setenv("WORKER_IDLE_SLEEP", "-5s")
	assert.Equal(t, 5*time.Second, Duration("WORKER_IDLE_SLEEP", 5*time.Second))
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	cfg = &Config{LogLevel: "loud"}
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
