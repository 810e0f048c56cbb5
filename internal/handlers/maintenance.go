package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/models"
)

const defaultUpcomingWindow = 30 * 24 * time.Hour

// MaintenanceService is the maintenance use-case surface the handler needs.
type MaintenanceService interface {
	Create(ctx context.Context, ownerID string, in models.CreateMaintenanceInput) (*models.MaintenanceRecord, error)
	List(ctx context.Context, ownerID string) ([]models.MaintenanceRecord, error)
	Update(ctx context.Context, ownerID, id string, patch models.MaintenancePatch) error
	Delete(ctx context.Context, ownerID, id string) error
	Count(ctx context.Context, ownerID string) (int64, error)
	CountUpcoming(ctx context.Context, ownerID string, within time.Duration) (int64, error)
}

// MaintenanceHandler serves the /maintenance routes.
type MaintenanceHandler struct {
	maintenance MaintenanceService
	logger      logrus.FieldLogger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(maintenance MaintenanceService, logger logrus.FieldLogger) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance, logger: logger}
}

func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var in models.CreateMaintenanceInput
	if err := decodeJSON(r, &in); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	record, err := h.maintenance.Create(r.Context(), owner, in)
	if err != nil {
		logger := h.logger
		if record != nil {
			// Written but not published; keep the id for reconciliation.
			logger = logger.WithField("maintenance_id", record.MaintenanceID)
		}
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":        "Maintenance record added successfully.",
		"maintenance_id": record.MaintenanceID,
	})
}

func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	records, err := h.maintenance.List(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.MaintenanceRecord{"items": records})
}

func (h *MaintenanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var patch models.MaintenancePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.maintenance.Update(r.Context(), owner, chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Maintenance record updated successfully.")
}

func (h *MaintenanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if err := h.maintenance.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Maintenance record deleted successfully.")
}

func (h *MaintenanceHandler) Count(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	n, err := h.maintenance.Count(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"maintenance_count": n})
}

// CountUpcoming counts records due within ?within= (a duration such as "30d"
// or "72h", default 30 days).
func (h *MaintenanceHandler) CountUpcoming(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	within := defaultUpcomingWindow
	if raw := r.URL.Query().Get("within"); raw != "" {
		d, err := config.ParseDuration(raw)
		if err != nil || d < 0 {
			writeErrorMessage(w, http.StatusBadRequest, "invalid within duration")
			return
		}
		within = d
	}
	n, err := h.maintenance.CountUpcoming(r.Context(), owner, within)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}
