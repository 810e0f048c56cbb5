// Package report renders maintenance reports and runs the worker that turns
// queued maintenance events into stored reports.
package report

import (
	"strconv"
	"strings"

	"github.com/ukydev/vehicle-maintenance/internal/models"
)

const (
	unknown       = "Unknown"
	notApplicable = "N/A"
)

// VehicleSnapshot is the vehicle part of a report. Zero values render as "Unknown".
type VehicleSnapshot struct {
	Make  string
	Model string
	Year  int
}

// MaintenanceSnapshot is the maintenance part of a report. Empty strings and a
// nil Mileage render as "N/A".
type MaintenanceSnapshot struct {
	MaintenanceType string
	Mileage         *float64
	LastServiceDate string
	NextServiceDate string
}

// SnapshotsFromEvent splits a queued event into generator inputs.
func SnapshotsFromEvent(e models.MaintenanceEvent) (VehicleSnapshot, MaintenanceSnapshot) {
	v := VehicleSnapshot{Make: e.Make, Model: e.Model, Year: e.Year}
	m := MaintenanceSnapshot{
		MaintenanceType: e.MaintenanceType,
		Mileage:         e.Mileage,
		LastServiceDate: e.LastServiceDate,
		NextServiceDate: e.NextServiceDate,
	}
	return v, m
}

// Generate renders the plain-text report. It performs no I/O.
func Generate(v VehicleSnapshot, m MaintenanceSnapshot) string {
	year := unknown
	if v.Year != 0 {
		year = strconv.Itoa(v.Year)
	}
	mileage := notApplicable
	if m.Mileage != nil {
		mileage = strconv.FormatFloat(*m.Mileage, 'f', -1, 64)
	}

	var b strings.Builder
	b.WriteString("Thank you for trusting us with your vehicle.\n")
	b.WriteString("Your Vehicle Maintenance Report is shared below\n")
	b.WriteString("--------------------------\n")
	b.WriteString("Vehicle Make and Model  : " + or(v.Make, unknown) + " " + or(v.Model, unknown) + "\n")
	b.WriteString("Registration Year       : " + year + "\n")
	b.WriteString("Maintenance Type        : " + or(m.MaintenanceType, notApplicable) + "\n")
	b.WriteString("Mileage at Service      : " + mileage + "\n")
	b.WriteString("Service Date            : " + or(m.LastServiceDate, notApplicable) + "\n")
	b.WriteString("Next Scheduled Service  : " + or(m.NextServiceDate, notApplicable) + "\n")
	return b.String()
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
