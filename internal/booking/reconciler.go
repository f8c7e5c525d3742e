package booking

import (
	"context"
	"time"

	"github.com/alemendez13/sistema-ATU-sub000/internal/calendar"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// correlationCounter is the reconciler's view of the slot ledger.
type correlationCounter interface {
	CountByCorrelation(ctx context.Context, correlationID string) (int64, error)
}

// Reconciler sweeps stale pending intents and repairs the inconsistency
// window the saga's external-first ordering leaves open: a calendar event
// created for a booking whose local writes never landed.
type Reconciler struct {
	intents    *IntentStore
	slots      correlationCounter
	cal        calendar.Service
	logger     *logging.Logger
	staleAfter time.Duration
	interval   time.Duration
	batchSize  int32
}

func NewReconciler(intents *IntentStore, slots correlationCounter, cal calendar.Service, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		intents:    intents,
		slots:      slots,
		cal:        cal,
		logger:     logger,
		staleAfter: 15 * time.Minute,
		interval:   5 * time.Minute,
		batchSize:  25,
	}
}

func (r *Reconciler) WithStaleAfter(d time.Duration) *Reconciler {
	if d > 0 {
		r.staleAfter = d
	}
	return r
}

func (r *Reconciler) WithInterval(d time.Duration) *Reconciler {
	if d > 0 {
		r.interval = d
	}
	return r
}

// Start runs the sweep loop until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	if r.intents == nil || r.slots == nil {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("intent sweep failed", "error", err)
			}
		}
	}
}

// Sweep processes one batch of stale intents.
func (r *Reconciler) Sweep(ctx context.Context) error {
	stale, err := r.intents.FetchStale(ctx, r.staleAfter, r.batchSize)
	if err != nil {
		return err
	}
	for _, intent := range stale {
		r.repair(ctx, intent)
	}
	return nil
}

func (r *Reconciler) repair(ctx context.Context, intent Intent) {
	// No correlation id means the calendar write never succeeded; the saga
	// aborted cleanly and only the intent row is left over.
	if intent.CorrelationID == "" {
		if err := r.intents.MarkFailed(ctx, intent.ID); err != nil {
			r.logger.Error("mark intent failed", "intent_id", intent.ID, "error", err)
		}
		return
	}

	n, err := r.slots.CountByCorrelation(ctx, intent.CorrelationID)
	if err != nil {
		r.logger.Error("intent slot lookup failed", "intent_id", intent.ID, "error", err)
		return
	}
	if n > 0 {
		// Local state exists; the saga only skipped its final bookkeeping.
		if err := r.intents.MarkCommitted(ctx, intent.ID); err != nil {
			r.logger.Error("mark intent committed", "intent_id", intent.ID, "error", err)
		}
		return
	}

	// Orphaned calendar event: it exists externally with no slots behind
	// it. Remove it so the provider's agenda matches reality.
	r.logger.Warn("repairing orphaned calendar event",
		"intent_id", intent.ID,
		"event_id", intent.CorrelationID,
		"provider_id", intent.ProviderID,
	)
	if r.cal != nil {
		if err := r.cal.DeleteEvent(ctx, intent.CalendarID, intent.CorrelationID); err != nil {
			r.logger.Error("orphaned event delete failed, will retry next sweep",
				"event_id", intent.CorrelationID, "error", err)
			return
		}
	}
	if err := r.intents.MarkFailed(ctx, intent.ID); err != nil {
		r.logger.Error("mark intent failed", "intent_id", intent.ID, "error", err)
	}
}
