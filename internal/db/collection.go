package db

import (
	"context"

	"github.com/ukydev/vehicle-maintenance/internal/models"
)

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	// FindVehicleByID resolves a vehicle by id alone, regardless of owner.
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindOwnedVehicle(ctx context.Context, ownerID, id string) (*models.Vehicle, error)
	FindVehiclesByOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, ownerID, id string, patch models.VehiclePatch) error
	DeleteVehicle(ctx context.Context, ownerID, id string) error
	CountVehicles(ctx context.Context, ownerID string) (int64, error)
}

// MaintenanceCollection defines the interface for maintenance record operations.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, record models.MaintenanceRecord) error
	FindMaintenanceByOwner(ctx context.Context, ownerID string) ([]models.MaintenanceRecord, error)
	UpdateMaintenance(ctx context.Context, ownerID, id string, patch models.MaintenancePatch) error
	DeleteMaintenance(ctx context.Context, ownerID, id string) error
	CountMaintenance(ctx context.Context, ownerID string) (int64, error)
	// CountMaintenanceDue counts records whose next_service_date is within [from, to] (YYYY-MM-DD).
	CountMaintenanceDue(ctx context.Context, ownerID, from, to string) (int64, error)
}

// ReportStore persists immutable report blobs addressed by key.
type ReportStore interface {
	// PutReport stores body under key. replaced is true when an object with the
	// same key already existed and has been superseded.
	PutReport(ctx context.Context, key string, body []byte) (replaced bool, err error)
	GetReport(ctx context.Context, key string) ([]byte, error)
	// ListReports returns the keys starting with prefix in ascending order.
	ListReports(ctx context.Context, prefix string) ([]string, error)
}
