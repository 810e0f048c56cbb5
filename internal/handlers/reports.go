package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/db"
	"github.com/ukydev/vehicle-maintenance/internal/report"
)

// ReportHandler serves stored reports. Callers only ever see their own.
type ReportHandler struct {
	store  db.ReportStore
	logger logrus.FieldLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(store db.ReportStore, logger logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{store: store, logger: logger}
}

// List returns the caller's report keys. The optional user_id query parameter
// must name the caller.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" && userID != owner {
		writeErrorMessage(w, http.StatusForbidden, "reports of another user are not accessible")
		return
	}
	keys, err := h.store.ListReports(r.Context(), report.OwnerPrefix(owner))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// Get returns one report body. The name may be given with or without the
// "reports/" prefix; names outside the caller's reports answer 404.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "*")
	if !strings.HasPrefix(key, report.KeyPrefix) {
		key = report.KeyPrefix + key
	}
	if !report.OwnsKey(owner, key) {
		writeErrorMessage(w, http.StatusNotFound, "report not found")
		return
	}
	body, err := h.store.GetReport(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
