package job

import (
	"errors"
	"fmt"
	"time"
)

type snoozeError struct {
	after time.Duration
}

func (e *snoozeError) Error() string {
	return fmt.Sprintf("job: snoozed for %s", e.after)
}

// Snooze tells the worker to reschedule the job after d without
// consuming an attempt.
func Snooze(d time.Duration) error {
	return &snoozeError{after: d}
}

// snoozeDuration reports whether err asks for a snooze and for how long.
func snoozeDuration(err error) (time.Duration, bool) {
	var se *snoozeError
	if errors.As(err, &se) {
		return se.after, true
	}
	return 0, false
}
