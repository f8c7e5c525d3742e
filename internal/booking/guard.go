package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/alemendez13/sistema-ATU-sub000/internal/calendar"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	"github.com/alemendez13/sistema-ATU-sub000/internal/schedule"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// slotCounter is the guard's view of the slot ledger.
type slotCounter interface {
	CountOccupied(ctx context.Context, providerID string, day time.Time, slotTimes []string, excludeCorrelation string) (int, error)
	TimesByCorrelation(ctx context.Context, providerID string, day time.Time, correlationID string) ([]string, error)
}

// Guard is the last-mile recheck before a saga commits: none of the target
// slots may be occupied locally or busy externally. A false result is a hard
// abort, never a retry with a substituted time.
//
// The guard is advisory; the unique constraint on the slot ledger is what
// actually closes the check-then-act race.
type Guard struct {
	slots      slotCounter
	cal        calendar.Service
	defaultCal string
	loc        *time.Location
	logger     *logging.Logger
}

func NewGuard(slots slotCounter, cal calendar.Service, defaultCalendarID string, loc *time.Location, logger *logging.Logger) *Guard {
	if slots == nil {
		panic("booking: slot counter required")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{slots: slots, cal: cal, defaultCal: defaultCalendarID, loc: loc, logger: logger}
}

// SlotsAvailable verifies blockCount consecutive slots starting at startTime
// are free for the provider on day. Rows belonging to excludeCorrelation are
// ignored so a booking may overlap itself during its own reschedule.
func (g *Guard) SlotsAvailable(ctx context.Context, provider *catalog.Provider, day time.Time, startTime string, blockCount int, excludeCorrelation string) (bool, error) {
	times, ok := schedule.ConsecutiveSlots(startTime, blockCount)
	if !ok {
		return false, fmt.Errorf("booking: malformed start time %q", startTime)
	}

	occupied, err := g.slots.CountOccupied(ctx, provider.ID, day, times, excludeCorrelation)
	if err != nil {
		return false, err
	}
	if occupied > 0 {
		return false, nil
	}

	if g.cal == nil {
		return true, nil
	}

	// Free/busy cannot tell the booking's own event apart from foreign
	// blocks, so during a reschedule the busy projection is checked with
	// the booking's own recorded slot times subtracted. A target slot the
	// old booking never held must still lose to a foreign busy block.
	own := map[string]struct{}{}
	if excludeCorrelation != "" {
		ownTimes, err := g.slots.TimesByCorrelation(ctx, provider.ID, day, excludeCorrelation)
		if err != nil {
			return false, err
		}
		for _, t := range ownTimes {
			own[t] = struct{}{}
		}
	}

	calID := provider.CalendarID
	if calID == "" {
		calID = g.defaultCal
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, g.loc)
	blocks, err := g.cal.FreeBusy(ctx, []string{calID}, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		g.logger.Warn("guard freebusy read failed, checking local occupancy only",
			"provider_id", provider.ID, "error", err)
		return true, nil
	}
	busy := calendar.DiscretizeBusy(blocks[calID], g.loc)
	for _, t := range times {
		if _, blocked := busy[t]; !blocked {
			continue
		}
		if _, ours := own[t]; ours {
			continue
		}
		return false, nil
	}
	return true, nil
}
