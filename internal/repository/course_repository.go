package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ordinaly-software/catalog-api/internal/models"
)

// courseColumns are the snapshot fields read from the collaborator's tables.
// enrolled_count is derived from active enrollments so capacity is never
// duplicated.
const courseColumns = `c.id, c.title, c.slug, c.description, c.start_date, c.end_date,
c.start_time, c.end_time, c.periodicity, c.weekdays, c.week_of_month,
c.recurrence_interval, c.exclude_dates, c.timezone, c.max_attendants,
c.formatted_schedule, c.next_occurrences, c.created_at, c.updated_at,
(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'ACTIVE') AS enrolled_count`

// CourseRepository reads catalog course snapshots.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by the provided criteria together with the
// unpaged total. Display ordering (the finished-courses-last rule) is the
// engine's job; SQL only provides a stable fetch order for paging.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Periodicity != "" {
		conditions = append(conditions, fmt.Sprintf("c.periodicity = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Periodicity))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":          "c.title",
		"start_date":     "c.start_date",
		"end_date":       "c.end_date",
		"max_attendants": "c.max_attendants",
		"created_at":     "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	countQuery := "SELECT COUNT(*) FROM courses c" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM courses c%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		courseColumns, clause, orderBy, order, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a single course snapshot.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c WHERE c.id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindBySlug fetches a single course snapshot by its public slug.
func (r *CourseRepository) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c WHERE c.slug = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, slug); err != nil {
		return nil, err
	}
	return &course, nil
}
