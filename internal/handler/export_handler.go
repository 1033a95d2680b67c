package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ordinaly-software/catalog-api/internal/schedule"
	"github.com/ordinaly-software/catalog-api/internal/service"
	appErrors "github.com/ordinaly-software/catalog-api/pkg/errors"
	"github.com/ordinaly-software/catalog-api/pkg/response"
)

// ExportHandler exposes calendar and timetable export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CourseCalendar godoc
// @Summary Export a course schedule as iCalendar or a calendar link
// @Tags Exports
// @Produce json
// @Param id path string true "Course ID or slug"
// @Param format query string false "ics, google or outlook" default(ics)
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/calendar [get]
func (h *ExportHandler) CourseCalendar(c *gin.Context) {
	format := c.DefaultQuery("format", "ics")
	switch format {
	case "ics":
		payload, filename, err := h.exports.CourseCalendar(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", payload)
	case "google", "outlook":
		link, err := h.exports.CalendarLink(c.Request.Context(), c.Param("id"), service.CalendarProvider(format))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, gin.H{"url": link}, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))
	}
}

// Timetable godoc
// @Summary Generate a downloadable timetable file for the catalog
// @Tags Exports
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Param search query string false "Full-text filter on title and description"
// @Param periodicity query string false "Filter by recurrence family"
// @Param locale query string false "Schedule sentence locale (en, es)"
// @Success 201 {object} response.Envelope
// @Router /exports/timetable [post]
func (h *ExportHandler) Timetable(c *gin.Context) {
	filter := courseFilterFromQuery(c)
	format := service.TimetableFormat(c.DefaultQuery("format", "csv"))
	locale := schedule.Locale(c.Query("locale"))

	result, err := h.exports.Timetable(c.Request.Context(), filter, format, locale)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a previously generated export by signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
