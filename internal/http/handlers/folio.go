package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alemendez13/sistema-ATU-sub000/internal/folio"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

type folioIssuer interface {
	NextFolio(ctx context.Context, prefix string) (string, error)
}

// FolioHandler issues sequential document numbers.
type FolioHandler struct {
	generator folioIssuer
	prefix    string
	logger    *logging.Logger
}

func NewFolioHandler(generator folioIssuer, prefix string, logger *logging.Logger) *FolioHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FolioHandler{generator: generator, prefix: prefix, logger: logger}
}

// Next issues the next folio in the yearly sequence.
// POST /folios
func (h *FolioHandler) Next(w http.ResponseWriter, r *http.Request) {
	value, err := h.generator.NextFolio(r.Context(), h.prefix)
	if err != nil {
		if errors.Is(err, folio.ErrSequenceContention) {
			writeError(w, http.StatusConflict, "sequence busy, retry")
			return
		}
		h.logger.Error("folio generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"folio": value}); err != nil {
		h.logger.Error("failed to encode folio", "error", err)
	}
}
