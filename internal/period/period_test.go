package period

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 1, 10, hour, minute, 0, 0, time.UTC)
}

func TestWithin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		start string
		end   string
		now   time.Time
		want  bool
	}{
		{name: "no bounds", start: "", end: "", now: at(3, 0), want: true},
		{name: "inside window", start: "09:00", end: "18:00", now: at(12, 30), want: true},
		{name: "at start", start: "09:00", end: "18:00", now: at(9, 0), want: true},
		{name: "at end", start: "09:00", end: "18:00", now: at(18, 0), want: true},
		{name: "before window", start: "09:00", end: "18:00", now: at(8, 59), want: false},
		{name: "after window", start: "09:00", end: "18:00", now: at(18, 1), want: false},
		{name: "missing start disables gate", start: "", end: "18:00", now: at(23, 0), want: true},
		{name: "missing end disables gate", start: "09:00", end: "", now: at(8, 0), want: true},
		{name: "crossing midnight never satisfied", start: "22:00", end: "06:00", now: at(23, 0), want: false},
		{name: "malformed start fails closed", start: "9am", end: "18:00", now: at(12, 0), want: false},
		{name: "malformed end fails closed", start: "09:00", end: "25:00", now: at(12, 0), want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Within(tc.start, tc.end, tc.now); got != tc.want {
				t.Fatalf("Within(%q, %q, %v) = %v, want %v", tc.start, tc.end, tc.now, got, tc.want)
			}
		})
	}
}
