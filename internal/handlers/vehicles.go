package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/middleware"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"github.com/ukydev/vehicle-maintenance/internal/service"
)

// VehicleService is the vehicle use-case surface the handler needs.
type VehicleService interface {
	Create(ctx context.Context, ownerID string, in service.VehicleInput) (*models.Vehicle, error)
	List(ctx context.Context, ownerID string) ([]models.Vehicle, error)
	ListSummaries(ctx context.Context, ownerID string) ([]models.VehicleSummary, error)
	Get(ctx context.Context, ownerID, id string) (*models.Vehicle, error)
	Update(ctx context.Context, ownerID, id string, patch models.VehiclePatch) error
	Delete(ctx context.Context, ownerID, id string) error
	Count(ctx context.Context, ownerID string) (int64, error)
}

// VehicleHandler serves the /vehicles routes.
type VehicleHandler struct {
	vehicles VehicleService
	logger   logrus.FieldLogger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles VehicleService, logger logrus.FieldLogger) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, logger: logger}
}

// ownerFrom returns the owner id of the authenticated caller, answering 401
// when there is none.
func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return claims.OwnerID(), true
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var in service.VehicleInput
	if err := decodeJSON(r, &in); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	vehicle, err := h.vehicles.Create(r.Context(), owner, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":    "Vehicle created successfully.",
		"vehicle_id": vehicle.VehicleID,
	})
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	vehicles, err := h.vehicles.List(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// ListSummaries returns id and display name pairs for vehicle pickers.
func (h *VehicleHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	summaries, err := h.vehicles.ListSummaries(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	vehicle, err := h.vehicles.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var patch models.VehiclePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.vehicles.Update(r.Context(), owner, chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Vehicle updated successfully.")
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if err := h.vehicles.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Vehicle deleted successfully.")
}

func (h *VehicleHandler) Count(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	n, err := h.vehicles.Count(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"vehicle_count": n})
}
