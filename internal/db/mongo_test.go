package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// testDatabase connects to MONGO_URI and returns a throwaway database.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	database := client.Database("test_vehicle_maintenance_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, EnsureIndexes(ctx, database))
	return database
}

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNilCollection(t *testing.T) {
	ctx := context.Background()

	vehicles := &MongoVehicleCollection{}
	assert.ErrorIs(t, vehicles.InsertVehicle(ctx, models.Vehicle{}), errs.ErrStore)
	_, err := vehicles.FindVehicleByID(ctx, "v1")
	assert.ErrorIs(t, err, errs.ErrStore)

	maintenance := &MongoMaintenanceCollection{}
	assert.ErrorIs(t, maintenance.InsertMaintenance(ctx, models.MaintenanceRecord{}), errs.ErrStore)
	_, err = maintenance.FindMaintenanceByOwner(ctx, "u1")
	assert.ErrorIs(t, err, errs.ErrStore)

	users := &MongoUserCollection{}
	assert.ErrorIs(t, users.InsertUser(ctx, models.User{}), errs.ErrStore)
}

func TestMaintenanceSetDocument(t *testing.T) {
	t.Run("empty patch", func(t *testing.T) {
		_, err := maintenanceSetDocument(models.MaintenancePatch{})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("last date without derived next date", func(t *testing.T) {
		_, err := maintenanceSetDocument(models.MaintenancePatch{LastServiceDate: strPtr("2024-01-15")})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("dates travel together", func(t *testing.T) {
		set, err := maintenanceSetDocument(models.MaintenancePatch{
			Mileage:         floatPtr(1200),
			LastServiceDate: strPtr("2024-01-15"),
			NextServiceDate: strPtr("2024-07-15"),
		})
		require.NoError(t, err)
		assert.Equal(t, bson.D{
			{Key: "mileage", Value: 1200.0},
			{Key: "last_service_date", Value: "2024-01-15"},
			{Key: "next_service_date", Value: "2024-07-15"},
		}, set)
	})

	t.Run("type only", func(t *testing.T) {
		set, err := maintenanceSetDocument(models.MaintenancePatch{MaintenanceType: strPtr("Brakes")})
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "maintenance_type", Value: "Brakes"}}, set)
	})
}

func TestVehicleSetDocument(t *testing.T) {
	assert.Empty(t, vehicleSetDocument(models.VehiclePatch{}))
	set := vehicleSetDocument(models.VehiclePatch{Model: strPtr("Accord"), Year: intPtr(2019)})
	assert.Equal(t, bson.D{{Key: "model", Value: "Accord"}, {Key: "year", Value: 2019}}, set)
}

func TestVehicleCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	coll := &MongoVehicleCollection{Collection: database.Collection(VehiclesCollectionName)}

	v := models.Vehicle{VehicleID: uuid.NewString(), OwnerID: "alice", Make: "Honda", Model: "Civic", Year: 2020}
	require.NoError(t, coll.InsertVehicle(ctx, v))

	found, err := coll.FindVehicleByID(ctx, v.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, v, *found)

	_, err = coll.FindOwnedVehicle(ctx, "mallory", v.VehicleID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, coll.UpdateVehicle(ctx, "alice", v.VehicleID, models.VehiclePatch{Year: intPtr(2021)}))
	found, err = coll.FindOwnedVehicle(ctx, "alice", v.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, 2021, found.Year)
	assert.Equal(t, "Civic", found.Model)

	err = coll.UpdateVehicle(ctx, "mallory", v.VehicleID, models.VehiclePatch{Year: intPtr(1999)})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	n, err := coll.CountVehicles(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, coll.DeleteVehicle(ctx, "alice", v.VehicleID))
	require.NoError(t, coll.DeleteVehicle(ctx, "alice", v.VehicleID), "delete is idempotent")
	list, err := coll.FindVehiclesByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestMaintenanceCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	coll := &MongoMaintenanceCollection{Collection: database.Collection(MaintenanceCollectionName)}

	records := []models.MaintenanceRecord{
		{OwnerID: "alice", MaintenanceID: "m2", VehicleID: "v1", MaintenanceType: "Tires", Mileage: 100, LastServiceDate: "2024-03-01", NextServiceDate: "2024-09-01"},
		{OwnerID: "alice", MaintenanceID: "m1", VehicleID: "v1", MaintenanceType: "Oil Change", Mileage: 50, LastServiceDate: "2024-01-15", NextServiceDate: "2024-07-15"},
		{OwnerID: "bob", MaintenanceID: "m3", VehicleID: "v2", MaintenanceType: "Brakes", Mileage: 10, LastServiceDate: "2024-01-01", NextServiceDate: "2024-07-01"},
	}
	for _, r := range records {
		require.NoError(t, coll.InsertMaintenance(ctx, r))
	}

	list, err := coll.FindMaintenanceByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m1", list[0].MaintenanceID)
	assert.Equal(t, "m2", list[1].MaintenanceID)

	patch := models.MaintenancePatch{LastServiceDate: strPtr("2024-08-31"), NextServiceDate: strPtr("2025-02-28")}
	require.NoError(t, coll.UpdateMaintenance(ctx, "alice", "m1", patch))
	require.NoError(t, coll.UpdateMaintenance(ctx, "alice", "m1", patch), "repeating an update is harmless")

	list, err = coll.FindMaintenanceByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "m2", list[0].MaintenanceID)
	assert.Equal(t, "2025-02-28", list[1].NextServiceDate)

	err = coll.UpdateMaintenance(ctx, "bob", "m1", models.MaintenancePatch{Mileage: floatPtr(1)})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	due, err := coll.CountMaintenanceDue(ctx, "alice", "2024-08-01", "2024-09-30")
	require.NoError(t, err)
	assert.EqualValues(t, 1, due)

	require.NoError(t, coll.DeleteMaintenance(ctx, "alice", "m2"))
	require.NoError(t, coll.DeleteMaintenance(ctx, "alice", "does-not-exist"))
	total, err := coll.CountMaintenance(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestGridFSReportStore_Integration(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	store, err := NewGridFSReportStore(database)
	require.NoError(t, err)

	replaced, err := store.PutReport(ctx, "reports/alice_maintenance_report_20240115103000", []byte(`"first"`))
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = store.PutReport(ctx, "reports/alice_maintenance_report_20240115103000", []byte(`"second"`))
	require.NoError(t, err)
	assert.True(t, replaced)

	_, err = store.PutReport(ctx, "reports/alice_maintenance_report_20240116090000", []byte(`"third"`))
	require.NoError(t, err)
	_, err = store.PutReport(ctx, "reports/alicia_maintenance_report_20240116090000", []byte(`"other"`))
	require.NoError(t, err)

	body, err := store.GetReport(ctx, "reports/alice_maintenance_report_20240115103000")
	require.NoError(t, err)
	assert.Equal(t, `"second"`, string(body))

	keys, err := store.ListReports(ctx, "reports/alice_maintenance_report_")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reports/alice_maintenance_report_20240115103000",
		"reports/alice_maintenance_report_20240116090000",
	}, keys)

	_, err = store.GetReport(ctx, "reports/nobody_maintenance_report_20000101000000")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
