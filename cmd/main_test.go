package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/vehicle-maintenance/internal/app"
	"github.com/ukydev/vehicle-maintenance/internal/auth"
	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/db/mocks"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"github.com/ukydev/vehicle-maintenance/internal/notify"
	"github.com/ukydev/vehicle-maintenance/internal/queue"
)

func testConfig() *config.Config {
	return &config.Config{
		QueueDriver:           config.QueueDriverMemory,
		VisibilityTimeout:     time.Minute,
		Retention:             time.Hour,
		WorkerPollWait:        10 * time.Millisecond,
		WorkerIdleSleep:       10 * time.Millisecond,
		WorkerMaxDeliveries:   5,
		ServiceIntervalMonths: 6,
		JWTSecret:             "test-secret",
		JWTExpiry:             time.Hour,
	}
}

func bearer(t *testing.T, cfg *config.Config, username string) string {
	t.Helper()
	token, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry).GenerateToken(&models.User{ID: primitive.NewObjectID(), Username: username})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestNewHandler_Health(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	handler := newHandler(testConfig(), dependencies{
		Health: func(context.Context) error { return errors.New("down") },
	}, logger)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewHandler_UsesConfiguredInterval(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceIntervalMonths = 3
	logger, _ := logtest.NewNullLogger()
	vehicles := new(mocks.VehicleCollection)
	records := new(mocks.MaintenanceCollection)
	q := queue.NewMemory(cfg.VisibilityTimeout, cfg.Retention)
	defer q.Close()

	vehicles.On("FindVehicleByID", mock.Anything, "v1").
		Return(&models.Vehicle{VehicleID: "v1", OwnerID: "alice", Make: "Honda", Model: "Civic", Year: 2020}, nil)
	records.On("InsertMaintenance", mock.Anything, mock.MatchedBy(func(r models.MaintenanceRecord) bool {
		return r.NextServiceDate == "2024-04-15"
	})).Return(nil)

	handler := newHandler(cfg, dependencies{Vehicles: vehicles, Maintenance: records, Publisher: q}, logger)

	req := httptest.NewRequest("POST", "/maintenance", strings.NewReader(
		`{"vehicle_id":"v1","maintenance_type":"Oil Change","mileage":30000,"last_service_date":"2024-01-15"}`))
	req.Header.Set("Authorization", bearer(t, cfg, "alice"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	records.AssertExpectations(t)
}

// A record posted to the API ends up as a stored report when the worker runs
// against the same memory queue, which is how the server runs with
// QUEUE_DRIVER=memory.
func TestMemoryPipeline(t *testing.T) {
	cfg := testConfig()
	logger, _ := logtest.NewNullLogger()
	vehicles := new(mocks.VehicleCollection)
	records := new(mocks.MaintenanceCollection)
	reports := new(mocks.ReportStore)

	q, err := app.OpenQueue(cfg)
	require.NoError(t, err)
	defer q.Close()

	vehicles.On("FindVehicleByID", mock.Anything, "v1").
		Return(&models.Vehicle{VehicleID: "v1", OwnerID: "alice", Make: "Honda", Model: "Civic", Year: 2020}, nil)
	records.On("InsertMaintenance", mock.Anything, mock.Anything).Return(nil)

	stored := make(chan string, 1)
	reports.On("PutReport", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			var text string
			if json.Unmarshal(args.Get(2).([]byte), &text) != nil {
				return
			}
			select {
			case stored <- args.String(1) + "\n" + text:
			default:
			}
		}).
		Return(false, nil)

	handler := newHandler(cfg, dependencies{Vehicles: vehicles, Maintenance: records, Reports: reports, Publisher: q}, logger)
	worker := app.NewWorker(cfg, q, reports, notify.Noop{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req := httptest.NewRequest("POST", "/maintenance", strings.NewReader(
		`{"vehicle_id":"v1","maintenance_type":"Oil Change","mileage":30000,"last_service_date":"2024-01-15"}`))
	req.Header.Set("Authorization", bearer(t, cfg, "alice"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	select {
	case got := <-stored:
		assert.True(t, strings.HasPrefix(got, "reports/alice_maintenance_report_"), got)
		assert.Contains(t, got, "Vehicle Make and Model  : Honda Civic")
		assert.Contains(t, got, "Next Scheduled Service  : 2024-07-15")
	case <-time.After(5 * time.Second):
		t.Fatal("report was not stored")
	}

	cancel()
	assert.NoError(t, <-done)
	assert.Eventually(t, func() bool { return q.(*queue.Memory).Len() == 0 }, time.Second, 10*time.Millisecond)
}
