package schedule

import "time"

// LifecycleState describes where a course sits relative to "now".
type LifecycleState string

// Possible lifecycle states.
const (
	StateNoSchedule LifecycleState = "NO_SCHEDULE"
	StateUpcoming   LifecycleState = "UPCOMING"
	StateInProgress LifecycleState = "IN_PROGRESS"
	StateFinished   LifecycleState = "FINISHED"
)

// Classify derives the lifecycle state of a rule at the given instant. A rule
// with any missing date or time field is NoSchedule regardless of now; it is
// never reported as InProgress or Finished.
func Classify(r Rule, now time.Time) LifecycleState {
	start, startOK := r.StartInstant().Get()
	end, endOK := r.EndInstant().Get()
	if !startOK || !endOK {
		return StateNoSchedule
	}
	if now.Before(start) {
		return StateUpcoming
	}
	if now.Before(end) {
		return StateInProgress
	}
	return StateFinished
}
