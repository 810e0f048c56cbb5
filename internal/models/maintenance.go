package models

// MaintenanceRecord represents a maintenance event logged against a vehicle.
// Dates are calendar dates formatted as YYYY-MM-DD, so string order is date order.
type MaintenanceRecord struct {
	OwnerID         string  `json:"owner_id" bson:"owner_id"`
	MaintenanceID   string  `json:"maintenance_id" bson:"_id"`
	VehicleID       string  `json:"vehicle_id" bson:"vehicle_id"`
	MaintenanceType string  `json:"maintenance_type" bson:"maintenance_type"` // "Oil Change", "Tire Rotation", ...
	Mileage         float64 `json:"mileage" bson:"mileage"`
	LastServiceDate string  `json:"last_service_date" bson:"last_service_date"`
	NextServiceDate string  `json:"next_service_date" bson:"next_service_date"`
}

// CreateMaintenanceInput carries the caller-supplied fields of a new record.
type CreateMaintenanceInput struct {
	VehicleID       string   `json:"vehicle_id"`
	MaintenanceType string   `json:"maintenance_type"`
	Mileage         *float64 `json:"mileage"`
	LastServiceDate string   `json:"last_service_date"`
}

// MaintenancePatch is a partial maintenance update. Nil fields are left untouched.
// NextServiceDate is derived by the service from LastServiceDate and is never
// accepted from clients.
type MaintenancePatch struct {
	MaintenanceType *string  `json:"maintenance_type,omitempty"`
	Mileage         *float64 `json:"mileage,omitempty"`
	LastServiceDate *string  `json:"last_service_date,omitempty"`
	NextServiceDate *string  `json:"-"`
}

// Empty reports whether the patch carries no client-supplied field.
func (p MaintenancePatch) Empty() bool {
	return p.MaintenanceType == nil && p.Mileage == nil && p.LastServiceDate == nil
}
