package calendar

import "time"

// slotStep mirrors the engine's 30-minute scheduling granularity.
const slotStep = 30 * time.Minute

// DiscretizeBusy flattens busy intervals into the set of 30-minute slot
// markers (HH:MM, local to loc) they overlap. Interval starts are rounded
// down to the slot boundary; an interval touching any part of a slot marks
// the whole slot busy.
func DiscretizeBusy(blocks []BusyBlock, loc *time.Location) map[string]struct{} {
	if loc == nil {
		loc = time.Local
	}
	out := make(map[string]struct{})
	for _, block := range blocks {
		start := block.Start.In(loc).Truncate(slotStep)
		end := block.End.In(loc)
		for t := start; t.Before(end); t = t.Add(slotStep) {
			out[t.Format("15:04")] = struct{}{}
		}
	}
	return out
}
