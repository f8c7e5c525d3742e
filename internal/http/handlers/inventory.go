package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alemendez13/sistema-ATU-sub000/internal/inventory"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

type depleter interface {
	Deplete(ctx context.Context, sku string, quantity int, traceTag string) ([]inventory.MovementLine, error)
}

// InventoryHandler serves manual stock depletion.
type InventoryHandler struct {
	stock  depleter
	logger *logging.Logger
}

func NewInventoryHandler(stock depleter, logger *logging.Logger) *InventoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &InventoryHandler{stock: stock, logger: logger}
}

type depleteRequest struct {
	Quantity int    `json:"quantity"`
	TraceTag string `json:"trace_tag,omitempty"`
}

// Deplete consumes stock for a SKU, oldest expiry first.
// POST /inventory/{sku}/deplete
func (h *InventoryHandler) Deplete(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		writeError(w, http.StatusBadRequest, "sku required")
		return
	}
	var req depleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	lines, err := h.stock.Deplete(r.Context(), sku, req.Quantity, req.TraceTag)
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			writeError(w, http.StatusConflict, "insufficient stock")
			return
		}
		h.logger.Error("stock depletion failed", "sku", sku, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"sku": sku, "lines": lines}); err != nil {
		h.logger.Error("failed to encode depletion result", "sku", sku, "error", err)
	}
}
