package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/internal/schedule"
	"github.com/ordinaly-software/catalog-api/pkg/export"
	appErrors "github.com/ordinaly-software/catalog-api/pkg/errors"
	"github.com/ordinaly-software/catalog-api/pkg/storage"
)

// CalendarProvider selects the external calendar a link targets.
type CalendarProvider string

// Supported calendar link providers.
const (
	ProviderGoogle  CalendarProvider = "google"
	ProviderOutlook CalendarProvider = "outlook"
)

// TimetableFormat selects the rendered timetable file type.
type TimetableFormat string

// Supported timetable formats.
const (
	TimetableCSV TimetableFormat = "csv"
	TimetablePDF TimetableFormat = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type icalRenderer interface {
	Render(name string, events []export.CalendarEvent) ([]byte, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix     string
	OrganizerName string
	ResultTTL     time.Duration
	DefaultLocale string
}

// TimetableResult captures successful timetable generation metadata.
type TimetableResult struct {
	RelativePath string          `json:"relative_path"`
	Token        string          `json:"token"`
	URL          string          `json:"url"`
	Format       TimetableFormat `json:"format"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// ExportService renders course schedules as calendar payloads, prefilled
// calendar links and downloadable timetable files.
type ExportService struct {
	courses courseRepository
	storage fileStorage
	signer  *storage.DownloadSigner
	ical    icalRenderer
	csv     csvRenderer
	pdf     pdfRenderer
	cfg     ExportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(courses courseRepository, store fileStorage, signer *storage.DownloadSigner, cfg ExportConfig, logger *zap.Logger, ical icalRenderer, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = string(schedule.LocaleEnglish)
	}
	if ical == nil {
		ical = export.NewICalExporter("")
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		courses: courses,
		storage: store,
		signer:  signer,
		ical:    ical,
		csv:     csv,
		pdf:     pdf,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// CourseCalendar renders a single course as an iCalendar payload.
func (s *ExportService) CourseCalendar(ctx context.Context, idOrSlug string) ([]byte, string, error) {
	course, err := s.findCourse(ctx, idOrSlug)
	if err != nil {
		return nil, "", err
	}

	event, ok := s.buildEvent(course)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "course has no schedule to export")
	}

	payload, err := s.ical.Render(course.Title, []export.CalendarEvent{event})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
	}
	filename := fmt.Sprintf("%s.ics", sanitizeFilename(course.Slug))
	return payload, filename, nil
}

// CalendarLink builds a prefilled add-to-calendar URL for the course's next
// session.
func (s *ExportService) CalendarLink(ctx context.Context, idOrSlug string, provider CalendarProvider) (string, error) {
	course, err := s.findCourse(ctx, idOrSlug)
	if err != nil {
		return "", err
	}

	start, end, ok := s.nextSession(course)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrConflict, "course has no upcoming session")
	}

	switch provider {
	case ProviderGoogle:
		return googleCalendarURL(course, start, end), nil
	case ProviderOutlook:
		return outlookCalendarURL(course, start, end), nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported calendar provider")
	}
}

// Timetable renders the filtered catalog as a downloadable table and
// returns a signed URL for it.
func (s *ExportService) Timetable(ctx context.Context, filter models.CourseFilter, format TimetableFormat, locale schedule.Locale) (*TimetableResult, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 200
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	courses, _, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	table := s.buildTimetable(courses, locale)

	var payload []byte
	switch format {
	case TimetableCSV:
		payload, err = s.csv.Render(table)
	case TimetablePDF:
		payload, err = s.pdf.Render(table, "Course Timetable")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported timetable format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	exportID := uuid.New().String()
	filename := fmt.Sprintf("timetable_%s.%s", s.now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}

	token, expiresAt, err := s.signer.Sign(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &TimetableResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Open resolves a signed download token to a stored file handle.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// Cleanup removes stored exports older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) findCourse(ctx context.Context, idOrSlug string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, idOrSlug)
	if errors.Is(err, sql.ErrNoRows) {
		course, err = s.courses.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// buildEvent maps a course onto one VEVENT. Rules with native iCalendar
// equivalents get an RRULE; the rest enumerate their occurrences as RDATEs.
func (s *ExportService) buildEvent(course *models.Course) (export.CalendarEvent, bool) {
	rule := course.Rule()
	occurrences := rule.Occurrences(0)
	if len(occurrences) == 0 {
		return export.CalendarEvent{}, false
	}

	first := occurrences[0]
	event := export.CalendarEvent{
		UID:         fmt.Sprintf("%s@%s", course.ID, "catalog-api"),
		Summary:     course.Title,
		Description: course.Description,
		Location:    s.cfg.OrganizerName,
		Start:       first,
		End:         first.Add(sessionDuration(rule)),
	}

	if roption, ok := recurrenceRule(rule, first); ok {
		event.RecurrenceRule = roption
		for _, excluded := range rule.Exclusions {
			event.Exclusions = append(event.Exclusions, excluded.At(startTimeOrMidnight(rule), ruleLocation(rule)))
		}
	} else {
		event.ExtraDates = occurrences[1:]
	}
	return event, true
}

// recurrenceRule translates the rule into RRULE options where iCalendar
// recurrence semantics match exactly. Daily expansion runs every day no
// matter what interval the row carries, so the emitted rule carries none.
// Weekly rules with an interval above one anchor on the first matching week
// rather than the DTSTART week, so those fall back to explicit occurrence
// dates.
func recurrenceRule(r schedule.Rule, dtstart time.Time) (*rrule.ROption, bool) {
	option := rrule.ROption{Dtstart: dtstart}
	if until, ok := r.EndInstant().Get(); ok {
		option.Until = until
	}

	switch r.Periodicity {
	case schedule.PeriodicityDaily:
		option.Freq = rrule.DAILY
	case schedule.PeriodicityWeekly, schedule.PeriodicityCustom:
		if r.Interval > 1 {
			return nil, false
		}
		option.Freq = rrule.WEEKLY
		option.Byweekday = rruleWeekdays(r.Weekdays)
	default:
		return nil, false
	}

	if _, err := rrule.NewRRule(option); err != nil {
		return nil, false
	}
	return &option, true
}

func rruleWeekdays(weekdays []time.Weekday) []rrule.Weekday {
	mapping := map[time.Weekday]rrule.Weekday{
		time.Monday:    rrule.MO,
		time.Tuesday:   rrule.TU,
		time.Wednesday: rrule.WE,
		time.Thursday:  rrule.TH,
		time.Friday:    rrule.FR,
		time.Saturday:  rrule.SA,
		time.Sunday:    rrule.SU,
	}
	result := make([]rrule.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		result = append(result, mapping[wd])
	}
	return result
}

func (s *ExportService) nextSession(course *models.Course) (time.Time, time.Time, bool) {
	rule := course.Rule()
	it := rule.Iter(schedule.Window{From: mo.Some(s.now()), Limit: 1})
	start, ok := it.Next()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, start.Add(sessionDuration(rule)), true
}

func (s *ExportService) buildTimetable(courses []models.Course, locale schedule.Locale) export.Table {
	now := s.now()
	rows := make([][]string, 0, len(courses))
	for _, course := range courses {
		rule := course.Rule()
		next := ""
		it := rule.Iter(schedule.Window{From: mo.Some(now), Limit: 1})
		if occ, ok := it.Next(); ok {
			next = occ.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			course.Title,
			schedule.Format(rule, locale),
			string(schedule.Classify(rule, now)),
			next,
			fmt.Sprintf("%d/%d", course.EnrolledCount, course.MaxAttendants),
		})
	}
	return export.Table{
		Columns: []string{"Title", "Schedule", "State", "Next Session", "Enrolled"},
		Rows:    rows,
	}
}

func sessionDuration(r schedule.Rule) time.Duration {
	start, okStart := r.StartTime.Get()
	end, okEnd := r.EndTime.Get()
	if okStart && okEnd {
		minutes := (end.Hour-start.Hour)*60 + (end.Minute - start.Minute)
		if minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return time.Hour
}

func startTimeOrMidnight(r schedule.Rule) schedule.TimeOfDay {
	if tod, ok := r.StartTime.Get(); ok {
		return tod
	}
	return schedule.TimeOfDay{}
}

func ruleLocation(r schedule.Rule) *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.UTC
}

func googleCalendarURL(course *models.Course, start, end time.Time) string {
	const layout = "20060102T150405Z"
	values := url.Values{}
	values.Set("action", "TEMPLATE")
	values.Set("text", course.Title)
	values.Set("dates", fmt.Sprintf("%s/%s", start.UTC().Format(layout), end.UTC().Format(layout)))
	if course.Description != "" {
		values.Set("details", course.Description)
	}
	if course.Timezone != "" {
		values.Set("ctz", course.Timezone)
	}
	return "https://calendar.google.com/calendar/render?" + values.Encode()
}

func outlookCalendarURL(course *models.Course, start, end time.Time) string {
	values := url.Values{}
	values.Set("path", "/calendar/action/compose")
	values.Set("rru", "addevent")
	values.Set("subject", course.Title)
	values.Set("startdt", start.UTC().Format(time.RFC3339))
	values.Set("enddt", end.UTC().Format(time.RFC3339))
	if course.Description != "" {
		values.Set("body", course.Description)
	}
	return "https://outlook.live.com/calendar/0/deeplink/compose?" + values.Encode()
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
