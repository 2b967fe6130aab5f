package models

import "time"

// Result reports whether an action may proceed now and, if not, when.
type Result struct {
	Allowed    bool
	Remaining  int
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
}
