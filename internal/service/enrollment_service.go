package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ordinaly-software/catalog-api/internal/dto"
	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/internal/repository"
	"github.com/ordinaly-software/catalog-api/internal/schedule"
	appErrors "github.com/ordinaly-software/catalog-api/pkg/errors"
)

type enrollmentRepository interface {
	ExistsActive(ctx context.Context, courseID, userID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Cancel(ctx context.Context, courseID, userID string, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollRequest is the enrollment creation payload.
type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// EnrollmentService evaluates eligibility and orchestrates enrollment
// writes. The eligibility verdict is advisory; the insert carries its own
// capacity guard and its rejection wins over a stale CanEnroll.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Decision reports what the user may currently do with the course. An empty
// userID yields the anonymous verdict (never enrolled).
func (s *EnrollmentService) Decision(ctx context.Context, courseID, userID string) (*dto.Decision, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	isEnrolled := false
	if userID != "" {
		isEnrolled, err = s.repo.ExistsActive(ctx, courseID, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
	}

	decision := s.decide(course, isEnrolled)
	return dto.NewDecision(decision), nil
}

// Enroll registers the user on a course after checking eligibility.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest, userID string) (*dto.EnrollmentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.loadCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	isEnrolled, err := s.repo.ExistsActive(ctx, req.CourseID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if isEnrolled {
		return nil, appErrors.ErrAlreadyEnrolled
	}

	decision := s.decide(course, false)
	if !decision.CanEnroll {
		return nil, blockReasonError(decision.Reason)
	}

	enrollment := &models.Enrollment{CourseID: req.CourseID, UserID: userID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			return nil, appErrors.ErrCourseFull
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("user enrolled",
		zap.String("course_id", req.CourseID),
		zap.String("user_id", userID))

	view := dto.NewEnrollmentView(*enrollment)
	return &view, nil
}

// Cancel withdraws the user's active enrollment. Cancellation closes 24
// hours before the course start instant.
func (s *EnrollmentService) Cancel(ctx context.Context, courseID, userID string) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}

	isEnrolled, err := s.repo.ExistsActive(ctx, courseID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !isEnrolled {
		return appErrors.ErrNotEnrolled
	}

	decision := s.decide(course, true)
	if !decision.CanCancel {
		return blockReasonError(decision.Reason)
	}

	if err := s.repo.Cancel(ctx, courseID, userID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotEnrolled
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("enrollment cancelled",
		zap.String("course_id", courseID),
		zap.String("user_id", userID))
	return nil
}

// ListMine returns the user's enrollments, newest first.
func (s *EnrollmentService) ListMine(ctx context.Context, userID string) ([]dto.EnrollmentView, error) {
	enrollments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	views := make([]dto.EnrollmentView, 0, len(enrollments))
	for _, enrollment := range enrollments {
		views = append(views, dto.NewEnrollmentView(enrollment))
	}
	return views, nil
}

func (s *EnrollmentService) loadCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *EnrollmentService) decide(course *models.Course, isEnrolled bool) schedule.Decision {
	rule := course.Rule()
	now := s.now()
	state := schedule.Classify(rule, now)
	return schedule.Decide(state, course.Capacity(), isEnrolled, now, rule.StartInstant())
}

func (s *EnrollmentService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "catalog:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func blockReasonError(reason schedule.BlockReason) error {
	switch reason {
	case schedule.ReasonFull:
		return appErrors.ErrCourseFull
	case schedule.ReasonNotBookable:
		return appErrors.ErrNotBookable
	case schedule.ReasonFinished:
		return appErrors.Clone(appErrors.ErrConflict, "course already finished")
	case schedule.ReasonAlreadyStarted:
		return appErrors.Clone(appErrors.ErrConflict, "course already started")
	case schedule.ReasonTooCloseToStart:
		return appErrors.Clone(appErrors.ErrConflict, "cancellation window closed")
	case schedule.ReasonAlreadyEnrolled:
		return appErrors.ErrAlreadyEnrolled
	case schedule.ReasonNotEnrolled:
		return appErrors.ErrNotEnrolled
	default:
		return appErrors.ErrConflict
	}
}
