package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ordinaly-software/catalog-api/internal/middleware"
	"github.com/ordinaly-software/catalog-api/internal/models"
)

func authedContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	c, w := newGinContext(method, path, body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleCustomer})
	return c, w
}

func TestEnrollmentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, enrollments, _, _ := newHandlerFixture()

	c, w := authedContext(http.MethodPost, "/enrollments", []byte(`{"course_id":"course-1"}`))
	enrollments.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ACTIVE"`)
}

func TestEnrollmentHandlerCreateUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, enrollments, _, _ := newHandlerFixture()

	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"course_id":"course-1"}`))
	enrollments.Create(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollmentHandlerCreateFullCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, enrollments, courses, _ := newHandlerFixture()
	full := futureCourse("course-1")
	full.EnrolledCount = full.MaxAttendants
	courses.courses["course-1"] = full

	c, w := authedContext(http.MethodPost, "/enrollments", []byte(`{"course_id":"course-1"}`))
	enrollments.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "COURSE_FULL")
}

func TestEnrollmentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, enrollments, _, repo := newHandlerFixture()
	repo.active["course-1/user-1"] = true

	c, w := authedContext(http.MethodDelete, "/enrollments/course-1", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	enrollments.Delete(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestEnrollmentHandlerDeleteNotEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, enrollments, _, _ := newHandlerFixture()

	c, w := authedContext(http.MethodDelete, "/enrollments/course-1", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	enrollments.Delete(c)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "NOT_ENROLLED")
}

func TestEnrollmentHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, enrollments, _, _ := newHandlerFixture()

	c, w := authedContext(http.MethodGet, "/enrollments", nil)
	enrollments.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"course_id":"course-1"`)
}
