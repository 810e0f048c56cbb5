package models

import "fmt"

// Vehicle represents a vehicle registered by its owner.
type Vehicle struct {
	VehicleID string `bson:"_id" json:"vehicle_id"`
	OwnerID   string `bson:"owner_id" json:"owner_id"`
	Make      string `bson:"make" json:"make"`
	Model     string `bson:"model" json:"model"`
	Year      int    `bson:"year" json:"year"`
}

// DisplayName renders the "Make Model Year" label used by vehicle pickers.
func (v Vehicle) DisplayName() string {
	return fmt.Sprintf("%s %s %d", v.Make, v.Model, v.Year)
}

// VehicleSummary is the short form returned by the vehicle list endpoint.
type VehicleSummary struct {
	VehicleID   string `json:"vehicle_id"`
	DisplayName string `json:"display_name"`
}

// VehiclePatch is a partial vehicle update. Nil fields are left untouched.
type VehiclePatch struct {
	Make  *string `json:"make,omitempty"`
	Model *string `json:"model,omitempty"`
	Year  *int    `json:"year,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p VehiclePatch) Empty() bool {
	return p.Make == nil && p.Model == nil && p.Year == nil
}
