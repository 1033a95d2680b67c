package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/internal/repository"
	appErrors "github.com/ordinaly-software/catalog-api/pkg/errors"
)

type mockCourseRepo struct {
	courses   map[string]models.Course
	listCalls int
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	m.listCalls++
	result := make([]models.Course, 0, len(m.courses))
	for _, course := range m.courses {
		result = append(result, course)
	}
	return result, len(result), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return &course, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	for _, course := range m.courses {
		if course.Slug == slug {
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentRepo struct {
	active    map[string]bool
	created   *models.Enrollment
	cancelled []string
	createErr error
	cancelErr error
}

func enrollmentKey(courseID, userID string) string {
	return courseID + "/" + userID
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, courseID, userID string) (bool, error) {
	return m.active[enrollmentKey(courseID, userID)], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = "new-enrollment"
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.CreatedAt = time.Now()
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Cancel(ctx context.Context, courseID, userID string, at time.Time) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, enrollmentKey(courseID, userID))
	return nil
}

func (m *mockEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	return []models.Enrollment{{ID: "e1", CourseID: "course-1", UserID: userID, Status: models.EnrollmentStatusActive}}, nil
}

func upcomingCourse(id string) models.Course {
	start := "11:00"
	end := "13:00"
	return models.Course{
		ID:            id,
		Title:         "Automation basics",
		Slug:          "automation-basics",
		StartDate:     "2025-09-01",
		EndDate:       "2025-09-30",
		StartTime:     &start,
		EndTime:       &end,
		Periodicity:   "WEEKLY",
		Weekdays:      pq.StringArray{"thursday"},
		Interval:      1,
		Timezone:      "UTC",
		MaxAttendants: 15,
		EnrolledCount: 3,
		CreatedAt:     time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC) }
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, nil, false)
}

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *mockCourseRepo, *mockEnrollmentRepo) {
	t.Helper()
	courses := &mockCourseRepo{courses: map[string]models.Course{"course-1": upcomingCourse("course-1")}}
	repo := &mockEnrollmentRepo{active: map[string]bool{}}
	svc := NewEnrollmentService(repo, courses, disabledCache(), nil, nil)
	svc.now = testClock()
	return svc, courses, repo
}

func TestEnrollSucceeds(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)

	view, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "course-1"}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "new-enrollment", view.ID)
	assert.Equal(t, "course-1", view.CourseID)
	assert.Equal(t, string(models.EnrollmentStatusActive), view.Status)
}

func TestEnrollRejectsMissingCourseID(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	_, err := svc.Enroll(context.Background(), EnrollRequest{}, "user-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollUnknownCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "missing"}, "user-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollAlreadyEnrolled(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)
	repo.active[enrollmentKey("course-1", "user-1")] = true

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "course-1"}, "user-1")
	require.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestEnrollFullCourse(t *testing.T) {
	svc, courses, _ := newEnrollmentFixture(t)
	full := upcomingCourse("course-1")
	full.EnrolledCount = full.MaxAttendants
	courses.courses["course-1"] = full

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "course-1"}, "user-1")
	require.ErrorIs(t, err, appErrors.ErrCourseFull)
}

func TestEnrollUnscheduledCourse(t *testing.T) {
	svc, courses, _ := newEnrollmentFixture(t)
	unscheduled := upcomingCourse("course-1")
	unscheduled.StartDate = "0000-00-00"
	courses.courses["course-1"] = unscheduled

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "course-1"}, "user-1")
	require.ErrorIs(t, err, appErrors.ErrNotBookable)
}

func TestEnrollLosesCapacityRace(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)
	repo.createErr = repository.ErrCapacityExceeded

	_, err := svc.Enroll(context.Background(), EnrollRequest{CourseID: "course-1"}, "user-1")
	require.ErrorIs(t, err, appErrors.ErrCourseFull)
}

func TestCancelSucceeds(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)
	repo.active[enrollmentKey("course-1", "user-1")] = true

	err := svc.Cancel(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	assert.Contains(t, repo.cancelled, enrollmentKey("course-1", "user-1"))
}

func TestCancelNotEnrolled(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	err := svc.Cancel(context.Background(), "course-1", "user-1")
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
}

func TestCancelInsideLockout(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)
	repo.active[enrollmentKey("course-1", "user-1")] = true
	// 23h before the September 01 11:00 start instant.
	svc.now = func() time.Time { return time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC) }

	err := svc.Cancel(context.Background(), "course-1", "user-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.cancelled)
}

func TestCancelRaceReportsNotEnrolled(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)
	repo.active[enrollmentKey("course-1", "user-1")] = true
	repo.cancelErr = sql.ErrNoRows

	err := svc.Cancel(context.Background(), "course-1", "user-1")
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
}

func TestDecisionForAnonymousUser(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	decision, err := svc.Decision(context.Background(), "course-1", "")
	require.NoError(t, err)
	assert.True(t, decision.CanEnroll)
	assert.False(t, decision.CanCancel)
}

func TestDecisionForEnrolledUser(t *testing.T) {
	svc, _, repo := newEnrollmentFixture(t)
	repo.active[enrollmentKey("course-1", "user-1")] = true

	decision, err := svc.Decision(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	assert.False(t, decision.CanEnroll)
	assert.True(t, decision.CanCancel)
}

func TestListMine(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	views, err := svc.ListMine(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "course-1", views[0].CourseID)
}

func TestBlockReasonErrorFallsBackToConflict(t *testing.T) {
	err := blockReasonError("SOMETHING_ELSE")
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.True(t, errors.Is(err, appErrors.ErrConflict))
}
