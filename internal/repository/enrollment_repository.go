package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ordinaly-software/catalog-api/internal/models"
)

// ErrCapacityExceeded is returned when the collaborator's atomic capacity
// guard rejects an insert. The advisory engine decision never prevents this.
var ErrCapacityExceeded = fmt.Errorf("course capacity exceeded")

// EnrollmentRepository proxies enrollment reads and writes to the course
// management collaborator's tables, which remain the capacity authority.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ExistsActive reports whether the user currently holds an active enrollment
// for the course.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, courseID, userID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND user_id = $2 AND status = $3"
	if err := r.db.GetContext(ctx, &count, query, courseID, userID, models.EnrollmentStatusActive); err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return count > 0, nil
}

// Create inserts an active enrollment. The INSERT carries the capacity guard
// so the check and the write are one atomic statement; a full course yields
// ErrCapacityExceeded instead of a row.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusActive

	query := `INSERT INTO enrollments (id, course_id, user_id, status, created_at)
SELECT $1, $2, $3, $4, $5
WHERE (SELECT COUNT(*) FROM enrollments WHERE course_id = $2 AND status = $4) <
      (SELECT max_attendants FROM courses WHERE id = $2)`
	res, err := r.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.CourseID, enrollment.UserID, enrollment.Status, enrollment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert enrollment result: %w", err)
	}
	if affected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

// Cancel marks the user's active enrollment as cancelled. Returns
// sql.ErrNoRows when no active enrollment exists.
func (r *EnrollmentRepository) Cancel(ctx context.Context, courseID, userID string, at time.Time) error {
	query := `UPDATE enrollments SET status = $1, cancelled_at = $2
WHERE course_id = $3 AND user_id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query,
		models.EnrollmentStatusCancelled, at, courseID, userID, models.EnrollmentStatusActive)
	if err != nil {
		return fmt.Errorf("cancel enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel enrollment result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByUser returns the user's enrollments, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	query := `SELECT id, course_id, user_id, status, created_at, cancelled_at
FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC`
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
