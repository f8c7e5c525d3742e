package schedule

// SlotMinutes is the scheduling granularity. Every booking is built out of
// 30-minute blocks.
const SlotMinutes = 30

// maxGridSlots caps the grid at 24 hours worth of slots as a runaway guard
// against absurd open/close bounds.
const maxGridSlots = 48

// Defaults used when no provider carries a schedule rule.
const (
	DefaultOpen  = "09:00"
	DefaultClose = "18:00"
)

// Grid returns the ordered, deduplicated list of bookable HH:MM time points
// stepping 30 minutes from open (inclusive) to close (exclusive).
func Grid(open, close string) []string {
	start, ok := parseHHMM(open)
	if !ok {
		start, _ = parseHHMM(DefaultOpen)
	}
	end, ok := parseHHMM(close)
	if !ok {
		end, _ = parseHHMM(DefaultClose)
	}

	var out []string
	seen := make(map[string]struct{})
	for t := start; t < end && len(out) < maxGridSlots; t += SlotMinutes {
		hhmm := formatHHMM(t)
		if _, dup := seen[hhmm]; dup {
			continue
		}
		seen[hhmm] = struct{}{}
		out = append(out, hhmm)
	}
	return out
}

// GlobalBounds computes the clinic-wide open/close bounds as the earliest
// start and latest end across every provider's rule ranges, defaulting to
// 09:00–18:00 when no provider has usable rules.
func GlobalBounds(rules []string) (open, close string) {
	open, close = "", ""
	for _, rule := range rules {
		for _, ranges := range ParseRule(rule) {
			for _, rng := range ranges {
				start := rng[:5]
				end := rng[6:]
				if open == "" || start < open {
					open = start
				}
				if close == "" || end > close {
					close = end
				}
			}
		}
	}
	if open == "" || close == "" {
		return DefaultOpen, DefaultClose
	}
	return open, close
}

// ConsecutiveSlots returns n grid times starting at hhmm, each 30 minutes
// after the previous. The second return is false when hhmm is malformed.
func ConsecutiveSlots(hhmm string, n int) ([]string, bool) {
	start, ok := parseHHMM(hhmm)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, formatHHMM(start+i*SlotMinutes))
	}
	return out, true
}
