// Package service holds the business rules for vehicles and maintenance
// records, on top of the store and queue interfaces.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"github.com/ukydev/vehicle-maintenance/internal/schedule"
)

// Publisher enqueues an event body. queue.Queue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, body []byte) (string, error)
}

// MaintenanceService creates and maintains maintenance records and publishes
// one MaintenanceEvent per created record.
type MaintenanceService struct {
	Now            func() time.Time
	NewID          func() string
	IntervalMonths int

	records   db.MaintenanceCollection
	vehicles  db.VehicleCollection
	publisher Publisher
	logger    logrus.FieldLogger
}

// NewMaintenanceService returns a service with a six month service interval.
func NewMaintenanceService(records db.MaintenanceCollection, vehicles db.VehicleCollection, publisher Publisher, logger logrus.FieldLogger) *MaintenanceService {
	return &MaintenanceService{
		Now:            func() time.Time { return time.Now().UTC() },
		NewID:          uuid.NewString,
		IntervalMonths: schedule.DefaultIntervalMonths,
		records:        records,
		vehicles:       vehicles,
		publisher:      publisher,
		logger:         logger,
	}
}

// Create validates and stores a record, then publishes its event exactly once.
//
// The vehicle must exist before the write and again when the event snapshot
// is taken. A failure after the write returns the stored record together with
// the error: the record stays written and no event is published. There is no
// retry and no compensation.
func (s *MaintenanceService) Create(ctx context.Context, ownerID string, in models.CreateMaintenanceInput) (*models.MaintenanceRecord, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	// The vehicle is looked up by id alone, not scoped to ownerID.
	if _, err := s.vehicles.FindVehicleByID(ctx, in.VehicleID); err != nil {
		return nil, err
	}

	next, err := schedule.NextServiceDate(in.LastServiceDate, s.IntervalMonths)
	if err != nil {
		return nil, err
	}
	record := models.MaintenanceRecord{
		OwnerID:         ownerID,
		MaintenanceID:   s.NewID(),
		VehicleID:       in.VehicleID,
		MaintenanceType: strings.TrimSpace(in.MaintenanceType),
		Mileage:         *in.Mileage,
		LastServiceDate: in.LastServiceDate,
		NextServiceDate: next,
	}
	if err := s.records.InsertMaintenance(ctx, record); err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"owner_id":       ownerID,
		"maintenance_id": record.MaintenanceID,
		"vehicle_id":     record.VehicleID,
	})

	vehicle, err := s.vehicles.FindVehicleByID(ctx, in.VehicleID)
	if err != nil {
		logger.WithError(err).Error("vehicle lookup after insert failed, event not published")
		return &record, err
	}
	body, err := json.Marshal(models.NewMaintenanceEvent(*vehicle, record))
	if err != nil {
		return &record, fmt.Errorf("%w: encode event: %w", errs.ErrPublish, err)
	}
	messageID, err := s.publisher.Publish(ctx, body)
	if err != nil {
		logger.WithError(err).Error("maintenance event not published")
		return &record, err
	}

	logger.WithField("message_id", messageID).Info("maintenance record created")
	return &record, nil
}

func validateCreate(in models.CreateMaintenanceInput) error {
	switch {
	case strings.TrimSpace(in.VehicleID) == "":
		return fmt.Errorf("%w: vehicle_id is required", errs.ErrInvalidArgument)
	case strings.TrimSpace(in.MaintenanceType) == "":
		return fmt.Errorf("%w: maintenance_type is required", errs.ErrInvalidArgument)
	case in.Mileage == nil:
		return fmt.Errorf("%w: mileage is required", errs.ErrInvalidArgument)
	case *in.Mileage < 0:
		return fmt.Errorf("%w: mileage must not be negative", errs.ErrInvalidArgument)
	}
	_, err := schedule.ParseDate(in.LastServiceDate)
	return err
}

// List returns the owner's records ordered by next_service_date. It never
// returns a nil slice.
func (s *MaintenanceService) List(ctx context.Context, ownerID string) ([]models.MaintenanceRecord, error) {
	records, err := s.records.FindMaintenanceByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.MaintenanceRecord{}
	}
	return records, nil
}

// Update applies the fields present in patch. A new last_service_date brings
// a recomputed next_service_date with it.
func (s *MaintenanceService) Update(ctx context.Context, ownerID, id string, patch models.MaintenancePatch) error {
	if patch.Empty() {
		return fmt.Errorf("%w: no fields to update", errs.ErrInvalidArgument)
	}
	patch.NextServiceDate = nil
	if patch.MaintenanceType != nil && strings.TrimSpace(*patch.MaintenanceType) == "" {
		return fmt.Errorf("%w: maintenance_type must not be empty", errs.ErrInvalidArgument)
	}
	if patch.Mileage != nil && *patch.Mileage < 0 {
		return fmt.Errorf("%w: mileage must not be negative", errs.ErrInvalidArgument)
	}
	if patch.LastServiceDate != nil {
		next, err := schedule.NextServiceDate(*patch.LastServiceDate, s.IntervalMonths)
		if err != nil {
			return err
		}
		patch.NextServiceDate = &next
	}
	return s.records.UpdateMaintenance(ctx, ownerID, id, patch)
}

// Delete removes a record. Removing a missing record succeeds.
func (s *MaintenanceService) Delete(ctx context.Context, ownerID, id string) error {
	return s.records.DeleteMaintenance(ctx, ownerID, id)
}

// Count returns the number of records the owner has.
func (s *MaintenanceService) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.records.CountMaintenance(ctx, ownerID)
}

// CountUpcoming counts records whose next service falls between today and
// today+within, both inclusive.
func (s *MaintenanceService) CountUpcoming(ctx context.Context, ownerID string, within time.Duration) (int64, error) {
	if within < 0 {
		return 0, fmt.Errorf("%w: window must not be negative", errs.ErrInvalidArgument)
	}
	today := s.Now().UTC()
	from := today.Format(schedule.DateLayout)
	to := today.Add(within).Format(schedule.DateLayout)
	return s.records.CountMaintenanceDue(ctx, ownerID, from, to)
}
