package schedule

import (
	"time"

	"github.com/samber/mo"
)

// Capacity is the read-only attendance snapshot owned by the course
// management collaborator. The engine never mutates it.
type Capacity struct {
	MaxAttendants int `json:"max_attendants"`
	EnrolledCount int `json:"enrolled_count"`
}

// Full reports whether no seats remain.
func (c Capacity) Full() bool {
	return c.EnrolledCount >= c.MaxAttendants
}

// BlockReason explains why an action is unavailable.
type BlockReason string

// Reasons surfaced alongside a blocked decision.
const (
	ReasonNone            BlockReason = ""
	ReasonNotBookable     BlockReason = "NOT_BOOKABLE"
	ReasonFull            BlockReason = "FULL"
	ReasonFinished        BlockReason = "FINISHED"
	ReasonAlreadyStarted  BlockReason = "ALREADY_STARTED"
	ReasonTooCloseToStart BlockReason = "TOO_CLOSE_TO_START"
	ReasonAlreadyEnrolled BlockReason = "ALREADY_ENROLLED"
	ReasonNotEnrolled     BlockReason = "NOT_ENROLLED"
)

// CancellationLockout is the window before the start instant during which an
// enrolled user may no longer cancel.
const CancellationLockout = 24 * time.Hour

// Decision is the advisory eligibility outcome for one user and course. The
// actual enroll/cancel write remains the collaborator's authority; callers
// must surface its rejection even when CanEnroll was true.
type Decision struct {
	CanEnroll bool        `json:"can_enroll"`
	CanCancel bool        `json:"can_cancel"`
	Reason    BlockReason `json:"reason,omitempty"`
}

// Decide evaluates the enrollment decision table. It is a pure function of
// its inputs; no cross-course coordination or stored transitions exist.
func Decide(state LifecycleState, capacity Capacity, isEnrolled bool, now time.Time, start mo.Option[time.Time]) Decision {
	if state == StateNoSchedule {
		return Decision{Reason: ReasonNotBookable}
	}
	if state == StateFinished {
		return Decision{Reason: ReasonFinished}
	}

	if isEnrolled {
		d := Decision{Reason: ReasonAlreadyEnrolled}
		startAt, ok := start.Get()
		if !ok {
			return d
		}
		switch {
		case !now.Before(startAt):
			d.Reason = ReasonAlreadyStarted
		case startAt.Sub(now) <= CancellationLockout:
			d.Reason = ReasonTooCloseToStart
		default:
			d.CanCancel = true
			d.Reason = ReasonNone
		}
		return d
	}

	if state != StateUpcoming {
		return Decision{Reason: ReasonAlreadyStarted}
	}
	if capacity.Full() {
		return Decision{Reason: ReasonFull}
	}
	return Decision{CanEnroll: true}
}
