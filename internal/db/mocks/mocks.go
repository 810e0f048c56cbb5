// Package mocks provides testify mocks of the db interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/models"
)

var (
	_ db.VehicleCollection     = (*VehicleCollection)(nil)
	_ db.MaintenanceCollection = (*MaintenanceCollection)(nil)
	_ db.UserCollection        = (*UserCollection)(nil)
	_ db.ReportStore           = (*ReportStore)(nil)
)

// VehicleCollection is a mock implementation of db.VehicleCollection
type VehicleCollection struct {
	mock.Mock
}

func (m *VehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *VehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *VehicleCollection) FindOwnedVehicle(ctx context.Context, ownerID, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *VehicleCollection) FindVehiclesByOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *VehicleCollection) UpdateVehicle(ctx context.Context, ownerID, id string, patch models.VehiclePatch) error {
	args := m.Called(ctx, ownerID, id, patch)
	return args.Error(0)
}

func (m *VehicleCollection) DeleteVehicle(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *VehicleCollection) CountVehicles(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MaintenanceCollection is a mock implementation of db.MaintenanceCollection
type MaintenanceCollection struct {
	mock.Mock
}

func (m *MaintenanceCollection) InsertMaintenance(ctx context.Context, record models.MaintenanceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MaintenanceCollection) FindMaintenanceByOwner(ctx context.Context, ownerID string) ([]models.MaintenanceRecord, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MaintenanceRecord), args.Error(1)
}

func (m *MaintenanceCollection) UpdateMaintenance(ctx context.Context, ownerID, id string, patch models.MaintenancePatch) error {
	args := m.Called(ctx, ownerID, id, patch)
	return args.Error(0)
}

func (m *MaintenanceCollection) DeleteMaintenance(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *MaintenanceCollection) CountMaintenance(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MaintenanceCollection) CountMaintenanceDue(ctx context.Context, ownerID, from, to string) (int64, error) {
	args := m.Called(ctx, ownerID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// UserCollection is a mock implementation of db.UserCollection
type UserCollection struct {
	mock.Mock
}

func (m *UserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *UserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ReportStore is a mock implementation of db.ReportStore
type ReportStore struct {
	mock.Mock
}

func (m *ReportStore) PutReport(ctx context.Context, key string, body []byte) (bool, error) {
	args := m.Called(ctx, key, body)
	return args.Bool(0), args.Error(1)
}

func (m *ReportStore) GetReport(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *ReportStore) ListReports(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
