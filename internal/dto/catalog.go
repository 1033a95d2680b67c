package dto

import (
	"time"

	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/internal/schedule"
)

// CourseView is the catalog listing projection: the persisted row enriched
// with derived lifecycle state and the human-readable schedule sentence.
type CourseView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	State           string    `json:"state"`
	ScheduleText    string    `json:"schedule_text"`
	Periodicity     string    `json:"periodicity"`
	StartDate       *string   `json:"start_date,omitempty"`
	EndDate         *string   `json:"end_date,omitempty"`
	StartTime       *string   `json:"start_time,omitempty"`
	EndTime         *string   `json:"end_time,omitempty"`
	Weekdays        []string  `json:"weekdays,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
	MaxAttendants   int       `json:"max_attendants"`
	EnrolledCount   int       `json:"enrolled_count"`
	SeatsLeft       int       `json:"seats_left"`
	Full            bool      `json:"full"`
	NextOccurrences []string  `json:"next_occurrences,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Decision        *Decision `json:"decision,omitempty"`
}

// Decision reports what the requesting user may do with a course.
type Decision struct {
	CanEnroll bool   `json:"can_enroll"`
	CanCancel bool   `json:"can_cancel"`
	Reason    string `json:"reason,omitempty"`
}

// EnrollmentView is the enrollment projection returned to users.
type EnrollmentView struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// OccurrenceList carries generated session instants for a course.
type OccurrenceList struct {
	CourseID    string   `json:"course_id"`
	Occurrences []string `json:"occurrences"`
}

// NewDecision converts an engine decision into its wire form.
func NewDecision(d schedule.Decision) *Decision {
	return &Decision{CanEnroll: d.CanEnroll, CanCancel: d.CanCancel, Reason: string(d.Reason)}
}

// NewEnrollmentView projects an enrollment row.
func NewEnrollmentView(e models.Enrollment) EnrollmentView {
	return EnrollmentView{
		ID:          e.ID,
		CourseID:    e.CourseID,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		CancelledAt: e.CancelledAt,
	}
}
