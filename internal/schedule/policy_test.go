package schedule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
)

var courseStart = time.Date(2025, time.September, 4, 11, 0, 0, 0, time.UTC)

func TestDecideEnrollUpcomingWithSeats(t *testing.T) {
	now := courseStart.Add(-72 * time.Hour)

	d := Decide(StateUpcoming, Capacity{MaxAttendants: 10, EnrolledCount: 3}, false, now, mo.Some(courseStart))

	assert.True(t, d.CanEnroll)
	assert.False(t, d.CanCancel)
	assert.Equal(t, ReasonNone, d.Reason)
}

func TestDecideCapacityFullBlocksEnrollment(t *testing.T) {
	now := courseStart.Add(-72 * time.Hour)

	d := Decide(StateUpcoming, Capacity{MaxAttendants: 10, EnrolledCount: 10}, false, now, mo.Some(courseStart))

	assert.False(t, d.CanEnroll)
	assert.Equal(t, ReasonFull, d.Reason)
}

func TestDecideCancellationLockout(t *testing.T) {
	capacity := Capacity{MaxAttendants: 10, EnrolledCount: 5}

	// 23h59m before start: locked out.
	d := Decide(StateUpcoming, capacity, true, courseStart.Add(-23*time.Hour-59*time.Minute), mo.Some(courseStart))
	assert.False(t, d.CanCancel)
	assert.Equal(t, ReasonTooCloseToStart, d.Reason)
}

func TestDecideCancellationAllowedOutsideLockout(t *testing.T) {
	capacity := Capacity{MaxAttendants: 10, EnrolledCount: 5}

	d := Decide(StateUpcoming, capacity, true, courseStart.Add(-25*time.Hour), mo.Some(courseStart))

	assert.True(t, d.CanCancel)
	assert.False(t, d.CanEnroll)
	assert.Equal(t, ReasonNone, d.Reason)
}

func TestDecideCancellationBlockedAfterStart(t *testing.T) {
	capacity := Capacity{MaxAttendants: 10, EnrolledCount: 5}

	d := Decide(StateInProgress, capacity, true, courseStart.Add(30*time.Minute), mo.Some(courseStart))

	assert.False(t, d.CanCancel)
	assert.Equal(t, ReasonAlreadyStarted, d.Reason)
}

func TestDecideNoScheduleNotBookable(t *testing.T) {
	d := Decide(StateNoSchedule, Capacity{MaxAttendants: 10}, false, courseStart, mo.None[time.Time]())

	assert.False(t, d.CanEnroll)
	assert.False(t, d.CanCancel)
	assert.Equal(t, ReasonNotBookable, d.Reason)
}

func TestDecideFinishedBlocksEverything(t *testing.T) {
	for _, enrolled := range []bool{true, false} {
		d := Decide(StateFinished, Capacity{MaxAttendants: 10}, enrolled, courseStart, mo.Some(courseStart))

		assert.False(t, d.CanEnroll)
		assert.False(t, d.CanCancel)
		assert.Equal(t, ReasonFinished, d.Reason)
	}
}

func TestDecideInProgressBlocksNewEnrollment(t *testing.T) {
	d := Decide(StateInProgress, Capacity{MaxAttendants: 10}, false, courseStart.Add(time.Hour), mo.Some(courseStart))

	assert.False(t, d.CanEnroll)
	assert.Equal(t, ReasonAlreadyStarted, d.Reason)
}

func TestDecideFullIrrelevantWhenAlreadyEnrolled(t *testing.T) {
	capacity := Capacity{MaxAttendants: 5, EnrolledCount: 5}

	d := Decide(StateUpcoming, capacity, true, courseStart.Add(-48*time.Hour), mo.Some(courseStart))

	assert.True(t, d.CanCancel)
}
