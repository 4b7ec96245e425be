package period

import (
	"strconv"
	"strings"
	"time"
)

// Within reports whether now falls inside the optional daily delivery window.
// Params: start/end bounds as "HH:MM" strings (empty disables the gate) and reference time.
// Returns: true when the gate passes; malformed bounds fail closed.
func Within(start, end string, now time.Time) bool {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return true
	}

	startAt, ok := atTimeOfDay(start, now)
	if !ok {
		return false
	}
	endAt, ok := atTimeOfDay(end, now)
	if !ok {
		return false
	}

	// Windows crossing midnight (start > end) are never satisfied.
	return !now.Before(startAt) && !now.After(endAt)
}

// atTimeOfDay anchors one "HH:MM" bound on the calendar day of the reference time.
// Params: bound string and reference time supplying date and location.
// Returns: anchored timestamp and false on any parse violation.
func atTimeOfDay(value string, ref time.Time) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, ref.Location()), true
}
