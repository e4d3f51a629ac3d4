package scheduler

import "time"

// Clock supplies wall-clock time. Injected so tests control firing.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
