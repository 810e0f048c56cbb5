package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"github.com/ukydev/vehicle-maintenance/internal/models"
)

// Earliest model year accepted for a vehicle.
const minVehicleYear = 1886

// VehicleService manages an owner's vehicles.
type VehicleService struct {
	Now   func() time.Time
	NewID func() string

	vehicles db.VehicleCollection
	logger   logrus.FieldLogger
}

// NewVehicleService returns a VehicleService backed by vehicles.
func NewVehicleService(vehicles db.VehicleCollection, logger logrus.FieldLogger) *VehicleService {
	return &VehicleService{
		Now:      time.Now,
		NewID:    uuid.NewString,
		vehicles: vehicles,
		logger:   logger,
	}
}

// VehicleInput carries the fields of a new vehicle.
type VehicleInput struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// Create stores a new vehicle under a fresh id.
func (s *VehicleService) Create(ctx context.Context, ownerID string, in VehicleInput) (*models.Vehicle, error) {
	vehicle := models.Vehicle{
		VehicleID: s.NewID(),
		OwnerID:   ownerID,
		Make:      strings.TrimSpace(in.Make),
		Model:     strings.TrimSpace(in.Model),
		Year:      in.Year,
	}
	if vehicle.Make == "" || vehicle.Model == "" {
		return nil, fmt.Errorf("%w: make and model are required", errs.ErrInvalidArgument)
	}
	if err := s.validateYear(vehicle.Year); err != nil {
		return nil, err
	}
	if err := s.vehicles.InsertVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"owner_id": ownerID, "vehicle_id": vehicle.VehicleID}).Info("vehicle created")
	return &vehicle, nil
}

func (s *VehicleService) validateYear(year int) error {
	if year < minVehicleYear || year > s.Now().Year()+1 {
		return fmt.Errorf("%w: year %d out of range", errs.ErrInvalidArgument, year)
	}
	return nil
}

// List returns all of the owner's vehicles, never nil.
func (s *VehicleService) List(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	vehicles, err := s.vehicles.FindVehiclesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	return vehicles, nil
}

// ListSummaries returns the id and "Make Model Year" label of each vehicle.
func (s *VehicleService) ListSummaries(ctx context.Context, ownerID string) ([]models.VehicleSummary, error) {
	vehicles, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.VehicleSummary, 0, len(vehicles))
	for _, v := range vehicles {
		summaries = append(summaries, models.VehicleSummary{VehicleID: v.VehicleID, DisplayName: v.DisplayName()})
	}
	return summaries, nil
}

// Get returns one of the owner's vehicles.
func (s *VehicleService) Get(ctx context.Context, ownerID, id string) (*models.Vehicle, error) {
	return s.vehicles.FindOwnedVehicle(ctx, ownerID, id)
}

// Update applies the fields present in patch.
func (s *VehicleService) Update(ctx context.Context, ownerID, id string, patch models.VehiclePatch) error {
	if patch.Empty() {
		return fmt.Errorf("%w: no fields to update", errs.ErrInvalidArgument)
	}
	if patch.Make != nil && strings.TrimSpace(*patch.Make) == "" {
		return fmt.Errorf("%w: make must not be empty", errs.ErrInvalidArgument)
	}
	if patch.Model != nil && strings.TrimSpace(*patch.Model) == "" {
		return fmt.Errorf("%w: model must not be empty", errs.ErrInvalidArgument)
	}
	if patch.Year != nil {
		if err := s.validateYear(*patch.Year); err != nil {
			return err
		}
	}
	return s.vehicles.UpdateVehicle(ctx, ownerID, id, patch)
}

// Delete removes a vehicle. Removing a missing vehicle succeeds. Maintenance
// records that reference it are kept.
func (s *VehicleService) Delete(ctx context.Context, ownerID, id string) error {
	return s.vehicles.DeleteVehicle(ctx, ownerID, id)
}

// Count returns the number of vehicles the owner has.
func (s *VehicleService) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.vehicles.CountVehicles(ctx, ownerID)
}
