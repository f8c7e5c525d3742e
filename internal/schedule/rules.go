// Package schedule turns provider weekly-schedule rules into the 30-minute
// slot grid the rest of the engine books against.
package schedule

import (
	"strconv"
	"strings"
)

// ParseRule parses a weekly-schedule rule string into a weekday → time-range
// map. The grammar is `{days}|{start-end}[,{start-end}]...` with groups
// separated by `;`, where days are comma-separated integers 0–6 (0 = Sunday)
// and ranges are `HH:MM-HH:MM`.
//
// Malformed groups (missing `|`, non-numeric or out-of-range day) and
// malformed ranges are skipped silently. Rules come from a spreadsheet the
// clinic staff edits by hand, so tolerating garbage beats rejecting the whole
// provider.
func ParseRule(rule string) map[int][]string {
	out := make(map[int][]string)
	for _, group := range strings.Split(rule, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		days, ranges, ok := strings.Cut(group, "|")
		if !ok {
			continue
		}
		var parsed []string
		for _, rng := range strings.Split(ranges, ",") {
			rng = strings.TrimSpace(rng)
			if validRange(rng) {
				parsed = append(parsed, rng)
			}
		}
		if len(parsed) == 0 {
			continue
		}
		for _, d := range strings.Split(days, ",") {
			day, err := strconv.Atoi(strings.TrimSpace(d))
			if err != nil || day < 0 || day > 6 {
				continue
			}
			out[day] = append(out[day], parsed...)
		}
	}
	return out
}

// RangeCovers reports whether hhmm falls inside rng, start inclusive and end
// exclusive. rng must be a well-formed `HH:MM-HH:MM` string.
func RangeCovers(rng, hhmm string) bool {
	start, end, ok := strings.Cut(rng, "-")
	if !ok {
		return false
	}
	return hhmm >= start && hhmm < end
}

// WorksAt reports whether a provider with the given parsed rules is working
// on weekday at hhmm.
func WorksAt(rules map[int][]string, weekday int, hhmm string) bool {
	for _, rng := range rules[weekday] {
		if RangeCovers(rng, hhmm) {
			return true
		}
	}
	return false
}

// validRange checks `HH:MM-HH:MM` shape with start before end. Overnight
// ranges are not supported and are dropped here.
func validRange(rng string) bool {
	start, end, ok := strings.Cut(rng, "-")
	if !ok {
		return false
	}
	if _, ok := parseHHMM(start); !ok {
		return false
	}
	if _, ok := parseHHMM(end); !ok {
		return false
	}
	return start < end
}

// parseHHMM converts a zero-padded HH:MM string to minutes since midnight.
func parseHHMM(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatHHMM(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return digits2(h) + ":" + digits2(m)
}

func digits2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
