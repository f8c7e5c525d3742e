// Package inventory depletes stock-tracked supplies FIFO by lot expiration
// and writes movement records for audit.
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Lot is a batch of stock for one SKU with its own expiration.
type Lot struct {
	ID        uuid.UUID
	SKU       string
	LotLabel  string
	ExpiresOn time.Time
	Remaining int
}

// MovementLine records how much one depletion took from one lot.
type MovementLine struct {
	LotID    uuid.UUID `json:"lot_id"`
	LotLabel string    `json:"lot_label"`
	Taken    int       `json:"taken"`
}

// Movement is the audit record of one depletion.
type Movement struct {
	ID        uuid.UUID
	SKU       string
	Quantity  int
	TraceTag  string
	Lines     []MovementLine
	CreatedAt time.Time
}
