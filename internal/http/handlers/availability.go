// Package handlers exposes the booking engine over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alemendez13/sistema-ATU-sub000/internal/availability"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

type dayResolver interface {
	Resolve(ctx context.Context, providerID string, day time.Time) (*availability.DaySheet, error)
}

// AvailabilityHandler serves the per-provider day sheet.
type AvailabilityHandler struct {
	resolver dayResolver
	logger   *logging.Logger
}

func NewAvailabilityHandler(resolver dayResolver, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{resolver: resolver, logger: logger}
}

// GetDaySheet returns the merged availability view for one provider day.
// GET /providers/{providerID}/availability?date=2025-03-12
func (h *AvailabilityHandler) GetDaySheet(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		http.Error(w, `{"error": "provider_id required"}`, http.StatusBadRequest)
		return
	}
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	sheet, err := h.resolver.Resolve(r.Context(), providerID, day)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, `{"error": "provider not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("availability resolve failed", "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sheet); err != nil {
		h.logger.Error("failed to encode day sheet", "provider_id", providerID, "error", err)
	}
}
