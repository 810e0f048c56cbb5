package models

import "encoding/json"

// MaintenanceEvent is the queue payload published after a maintenance record
// is written. It is a denormalized snapshot of the vehicle and the record so the
// report worker never has to read the record store.
type MaintenanceEvent struct {
	OwnerID         string   `json:"owner_id"`
	VehicleID       string   `json:"vehicle_id"`
	Make            string   `json:"make"`
	Model           string   `json:"model"`
	Year            int      `json:"year"`
	MaintenanceType string   `json:"maintenance_type"`
	Mileage         *float64 `json:"mileage"`
	LastServiceDate string   `json:"last_service_date"`
	NextServiceDate string   `json:"next_service_date"`
}

// UnmarshalJSON accepts the legacy "user_id" key as an alias for "owner_id".
func (e *MaintenanceEvent) UnmarshalJSON(data []byte) error {
	type plain MaintenanceEvent
	var aux struct {
		plain
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = MaintenanceEvent(aux.plain)
	if e.OwnerID == "" {
		e.OwnerID = aux.UserID
	}
	return nil
}

// NewMaintenanceEvent builds the event for a freshly written record.
func NewMaintenanceEvent(v Vehicle, r MaintenanceRecord) MaintenanceEvent {
	mileage := r.Mileage
	return MaintenanceEvent{
		OwnerID:         r.OwnerID,
		VehicleID:       r.VehicleID,
		Make:            v.Make,
		Model:           v.Model,
		Year:            v.Year,
		MaintenanceType: r.MaintenanceType,
		Mileage:         &mileage,
		LastServiceDate: r.LastServiceDate,
		NextServiceDate: r.NextServiceDate,
	}
}
