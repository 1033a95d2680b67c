package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ordinaly-software/catalog-api/internal/middleware"
	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/internal/schedule"
	"github.com/ordinaly-software/catalog-api/internal/service"
	"github.com/ordinaly-software/catalog-api/pkg/response"
)

// CatalogHandler exposes the public course catalog endpoints.
type CatalogHandler struct {
	catalog     *service.CatalogService
	enrollments *service.EnrollmentService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, enrollments *service.EnrollmentService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, enrollments: enrollments}
}

// List godoc
// @Summary List catalog courses
// @Tags Catalog
// @Produce json
// @Param search query string false "Full-text filter on title and description"
// @Param periodicity query string false "Filter by recurrence family"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort key"
// @Param order query string false "Sort direction"
// @Param locale query string false "Schedule sentence locale (en, es)"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) List(c *gin.Context) {
	filter := courseFilterFromQuery(c)
	locale := schedule.Locale(c.Query("locale"))

	courses, pagination, err := h.catalog.List(c.Request.Context(), filter, locale)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a course by ID or slug
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID or slug"
// @Param locale query string false "Schedule sentence locale (en, es)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	locale := schedule.Locale(c.Query("locale"))

	view, err := h.catalog.Get(c.Request.Context(), c.Param("id"), locale)
	if err != nil {
		response.Error(c, err)
		return
	}

	if claims := claimsFromContext(c); claims != nil {
		decision, err := h.enrollments.Decision(c.Request.Context(), view.ID, claims.UserID)
		if err == nil {
			view.Decision = decision
		}
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Occurrences godoc
// @Summary List generated session instants for a course
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID or slug"
// @Param from query string false "Window start (RFC3339)"
// @Param until query string false "Window end (RFC3339)"
// @Param limit query int false "Maximum occurrences"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/occurrences [get]
func (h *CatalogHandler) Occurrences(c *gin.Context) {
	from := parseInstant(c.Query("from"))
	until := parseInstant(c.Query("until"))
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	occurrences, err := h.catalog.Occurrences(c.Request.Context(), c.Param("id"), from, until, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, nil)
}

// Decision godoc
// @Summary Report enrollment eligibility for the current user
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/decision [get]
func (h *CatalogHandler) Decision(c *gin.Context) {
	userID := ""
	if claims := claimsFromContext(c); claims != nil {
		userID = claims.UserID
	}

	decision, err := h.enrollments.Decision(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

func courseFilterFromQuery(c *gin.Context) models.CourseFilter {
	var filter models.CourseFilter
	filter.Search = c.Query("search")
	filter.Periodicity = c.Query("periodicity")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

func parseInstant(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}
