package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/ordinaly-software/catalog-api/internal/dto"
	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/internal/schedule"
	"github.com/ordinaly-software/catalog-api/pkg/config"
	appErrors "github.com/ordinaly-software/catalog-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindBySlug(ctx context.Context, slug string) (*models.Course, error)
}

// CatalogService serves course listings and detail views enriched with
// derived schedule data: lifecycle state, the formatted schedule sentence
// and upcoming occurrences.
type CatalogService struct {
	repo   courseRepository
	cache  *CacheService
	cfg    config.CatalogConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo courseRepository, cache *CacheService, cfg config.CatalogConfig, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OccurrenceLimit <= 0 {
		cfg.OccurrenceLimit = 10
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = string(schedule.LocaleEnglish)
	}
	return &CatalogService{repo: repo, cache: cache, cfg: cfg, logger: logger, now: time.Now}
}

type cachedCourseList struct {
	Courses []dto.CourseView `json:"courses"`
	Total   int              `json:"total"`
}

// List returns the course catalog page. Finished courses always sink to the
// bottom of the page regardless of the requested sort key and direction.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter, locale schedule.Locale) ([]dto.CourseView, *models.Pagination, error) {
	locale = s.normalizeLocale(locale)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	key := s.listCacheKey(filter, locale)
	if s.cache.Enabled() {
		var cached cachedCourseList
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}
			return cached.Courses, pagination, nil
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	ordered := s.orderPage(courses, filter)
	views := make([]dto.CourseView, 0, len(ordered))
	for _, course := range ordered {
		views = append(views, s.view(course, locale))
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, cachedCourseList{Courses: views, Total: total}, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("course list cache write failed", zap.Error(err))
		}
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return views, pagination, nil
}

// Get resolves a course by ID, falling back to slug lookup.
func (s *CatalogService) Get(ctx context.Context, idOrSlug string, locale schedule.Locale) (*dto.CourseView, error) {
	locale = s.normalizeLocale(locale)

	key := fmt.Sprintf("catalog:course:%s:%s", idOrSlug, locale)
	if s.cache.Enabled() {
		var cached dto.CourseView
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	course, err := s.find(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	view := s.view(*course, locale)
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, view, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("course cache write failed", zap.String("course_id", course.ID), zap.Error(err))
		}
	}
	return &view, nil
}

// Occurrences generates session instants for a course, optionally bounded
// by a window. The limit is clamped to the configured ceiling.
func (s *CatalogService) Occurrences(ctx context.Context, idOrSlug string, from, until *time.Time, limit int) (*dto.OccurrenceList, error) {
	course, err := s.find(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.cfg.OccurrenceLimit {
		limit = s.cfg.OccurrenceLimit
	}
	window := schedule.Window{Limit: limit}
	if from != nil {
		window.From = mo.Some(*from)
	}
	if until != nil {
		window.Until = mo.Some(*until)
	}

	rule := course.Rule()
	occurrences := make([]string, 0, limit)
	it := rule.Iter(window)
	for {
		occ, ok := it.Next()
		if !ok {
			break
		}
		occurrences = append(occurrences, occ.Format(time.RFC3339))
	}

	return &dto.OccurrenceList{CourseID: course.ID, Occurrences: occurrences}, nil
}

// Warmup primes the per-course cache for the default locale. It pages
// through the whole catalog and is intended for background execution.
func (s *CatalogService) Warmup(ctx context.Context) (int, error) {
	if !s.cache.Enabled() {
		return 0, nil
	}
	locale := schedule.Locale(s.cfg.DefaultLocale)
	warmed := 0
	filter := models.CourseFilter{Page: 1, PageSize: 100}
	for {
		courses, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return warmed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "warmup listing failed")
		}
		for _, course := range courses {
			view := s.view(course, locale)
			key := fmt.Sprintf("catalog:course:%s:%s", course.ID, locale)
			if err := s.cache.Set(ctx, key, view, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("warmup cache write failed", zap.String("course_id", course.ID), zap.Error(err))
				continue
			}
			warmed++
		}
		if filter.Page*filter.PageSize >= total || len(courses) == 0 {
			return warmed, nil
		}
		filter.Page++
	}
}

func (s *CatalogService) find(ctx context.Context, idOrSlug string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, idOrSlug)
	if errors.Is(err, sql.ErrNoRows) {
		course, err = s.repo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// orderPage applies the display ordering on top of the fetched page so that
// finished courses sink below active ones for every sort key.
func (s *CatalogService) orderPage(courses []models.Course, filter models.CourseFilter) []models.Course {
	byID := make(map[string]models.Course, len(courses))
	snapshots := make([]schedule.Course, 0, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
		snapshots = append(snapshots, course.Snapshot())
	}

	key := schedule.SortKey(filter.SortBy)
	switch key {
	case schedule.SortByTitle, schedule.SortByStartDate, schedule.SortByEndDate,
		schedule.SortByEnrolledCount, schedule.SortByMaxAttendants, schedule.SortByCreatedAt:
	default:
		key = schedule.SortByCreatedAt
	}
	dir := schedule.SortDesc
	if strings.EqualFold(filter.SortOrder, string(schedule.SortAsc)) {
		dir = schedule.SortAsc
	}

	ordered := schedule.Order(snapshots, key, dir, s.now())
	result := make([]models.Course, 0, len(ordered))
	for _, snap := range ordered {
		result = append(result, byID[snap.ID])
	}
	return result
}

func (s *CatalogService) view(course models.Course, locale schedule.Locale) dto.CourseView {
	rule := course.Rule()
	state := schedule.Classify(rule, s.now())
	capacity := course.Capacity()

	view := dto.CourseView{
		ID:            course.ID,
		Title:         course.Title,
		Slug:          course.Slug,
		Description:   course.Description,
		State:         string(state),
		ScheduleText:  s.scheduleText(course, rule, locale),
		Periodicity:   course.Periodicity,
		StartTime:     course.StartTime,
		EndTime:       course.EndTime,
		Weekdays:      course.Weekdays,
		Timezone:      course.Timezone,
		MaxAttendants: capacity.MaxAttendants,
		EnrolledCount: capacity.EnrolledCount,
		SeatsLeft:     seatsLeft(capacity),
		Full:          capacity.Full(),
		CreatedAt:     course.CreatedAt,
	}
	if start, ok := rule.StartDate.Get(); ok {
		view.StartDate = stringPtr(start.String())
	}
	if end, ok := rule.EndDate.Get(); ok {
		view.EndDate = stringPtr(end.String())
	}
	view.NextOccurrences = s.nextOccurrences(course, rule)
	return view
}

// scheduleText prefers the precomputed sentence stored on the row but only
// for the default locale; other locales are always rendered fresh.
func (s *CatalogService) scheduleText(course models.Course, rule schedule.Rule, locale schedule.Locale) string {
	if string(locale) == s.cfg.DefaultLocale && course.FormattedSchedule != nil && *course.FormattedSchedule != "" {
		return *course.FormattedSchedule
	}
	return schedule.Format(rule, locale)
}

// nextOccurrences prefers the precomputed instants stored on the row and
// generates them from the rule otherwise.
func (s *CatalogService) nextOccurrences(course models.Course, rule schedule.Rule) []string {
	if len(course.NextOccurrences) > 0 {
		return course.NextOccurrences
	}
	generated := rule.Iter(schedule.Window{From: mo.Some(s.now()), Limit: s.cfg.OccurrenceLimit})
	result := make([]string, 0, s.cfg.OccurrenceLimit)
	for {
		occ, ok := generated.Next()
		if !ok {
			break
		}
		result = append(result, occ.Format(time.RFC3339))
	}
	return result
}

func (s *CatalogService) normalizeLocale(locale schedule.Locale) schedule.Locale {
	switch locale {
	case schedule.LocaleEnglish, schedule.LocaleSpanish:
		return locale
	default:
		return schedule.Locale(s.cfg.DefaultLocale)
	}
}

func (s *CatalogService) listCacheKey(filter models.CourseFilter, locale schedule.Locale) string {
	return fmt.Sprintf("catalog:list:%s:%s:%d:%d:%s:%s:%s",
		filter.Search, filter.Periodicity, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder, locale)
}

func seatsLeft(c schedule.Capacity) int {
	left := c.MaxAttendants - c.EnrolledCount
	if left < 0 {
		return 0
	}
	return left
}

func stringPtr(s string) *string {
	return &s
}
