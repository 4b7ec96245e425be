package clock

import "time"

// Timer is one stoppable scheduled callback.
// Params: none.
// Returns: false from Stop when the callback already fired or was stopped.
type Timer interface {
	Stop() bool
}

// Clock provides current time and timer scheduling for deterministic tests.
// Params: none.
// Returns: wall-clock reads and stoppable deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealClock reads system time and schedules timers on the runtime.
// Params: none.
// Returns: production clock implementation.
type RealClock struct{}

// Now returns current UTC time.
// Params: none.
// Returns: current UTC timestamp.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// AfterFunc schedules fn to run once after d.
// Params: delay duration and callback.
// Returns: stoppable timer handle.
func (RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{timer: time.AfterFunc(d, fn)}
}

type realTimer struct {
	timer *time.Timer
}

// Stop cancels the pending callback.
// Params: none.
// Returns: true when the callback was prevented from running.
func (t realTimer) Stop() bool {
	return t.timer.Stop()
}
