package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

type catalogWriter interface {
	UpsertProvider(ctx context.Context, p catalog.Provider) error
	UpsertService(ctx context.Context, s catalog.Service) error
}

// CatalogHandler imports provider and service rows. Rows arrive as loose
// column maps straight out of a spreadsheet export; the decoder resolves
// Spanish and English header aliases.
type CatalogHandler struct {
	store  catalogWriter
	logger *logging.Logger
}

func NewCatalogHandler(store catalogWriter, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{store: store, logger: logger}
}

type importResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// ImportServices upserts service rows.
// POST /admin/catalog/services
func (h *CatalogHandler) ImportServices(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]string
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	result := importResult{}
	for _, row := range rows {
		svc, err := catalog.DecodeService(row)
		if err != nil {
			h.logger.Warn("service row skipped", "error", err)
			result.Skipped = append(result.Skipped, err.Error())
			continue
		}
		if err := h.store.UpsertService(r.Context(), svc); err != nil {
			h.logger.Error("service upsert failed", "code", svc.Code, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		result.Imported++
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode import result", "error", err)
	}
}

// ImportProviders upserts provider rows.
// POST /admin/catalog/providers
func (h *CatalogHandler) ImportProviders(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]string
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	result := importResult{}
	for _, row := range rows {
		p, err := catalog.DecodeProvider(row)
		if err != nil {
			h.logger.Warn("provider row skipped", "error", err)
			result.Skipped = append(result.Skipped, err.Error())
			continue
		}
		if err := h.store.UpsertProvider(r.Context(), p); err != nil {
			h.logger.Error("provider upsert failed", "id", p.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		result.Imported++
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode import result", "error", err)
	}
}
