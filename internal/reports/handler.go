package reports

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/courses"
	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/response"
)

// Reader is the query side the report endpoints need.
type Reader interface {
	StudentEnrollments(ctx context.Context, studentID uuid.UUID) ([]StudentEnrollment, error)
	Roster(ctx context.Context, courseID uuid.UUID) (*Roster, error)
	Enrollments(ctx context.Context, f EnrollmentFilter) ([]models.EnrollmentDetail, error)
	CourseSummaries(ctx context.Context) ([]CourseSummary, error)
}

// Handler serves dashboards and rosters.
type Handler struct {
	repo   Reader
	logger *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(repo Reader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// MyEnrollments handles GET /me/enrollments.
func (h *Handler) MyEnrollments(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	list, err := h.repo.StudentEnrollments(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("student enrollments", zap.String("user_id", userID.String()), zap.Error(err))
		response.Internal(c, "failed to load enrollments")
		return
	}
	response.OK(c, list)
}

// Roster handles GET /course/:id/roster. Only the course instructor or an admin may read it.
func (h *Handler) Roster(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	roster, err := h.repo.Roster(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, courses.ErrCourseNotFound) {
			response.NotFound(c, "course not found")
			return
		}
		h.logger.Error("course roster", zap.String("course_id", courseID.String()), zap.Error(err))
		response.Internal(c, "failed to load roster")
		return
	}
	if models.Role(role) != models.RoleAdmin && roster.Course.InstructorID != userID {
		response.Forbidden(c, "only the course instructor can view the roster")
		return
	}
	response.OK(c, roster)
}

// Enrollments handles GET /admin/enrollments. Query: status, course_id, limit.
func (h *Handler) Enrollments(c *gin.Context) {
	var f EnrollmentFilter
	switch s := models.EnrollmentStatus(c.Query("status")); s {
	case "", models.EnrollmentStatusPending, models.EnrollmentStatusActive,
		models.EnrollmentStatusCompleted, models.EnrollmentStatusWaitlisted:
		f.Status = s
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	if v := c.Query("course_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid course_id")
			return
		}
		f.CourseID = &id
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}
	list, err := h.repo.Enrollments(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list enrollments", zap.Error(err))
		response.Internal(c, "failed to load enrollments")
		return
	}
	response.OK(c, list)
}

// CourseSummaries handles GET /admin/courses/summary.
func (h *Handler) CourseSummaries(c *gin.Context) {
	list, err := h.repo.CourseSummaries(c.Request.Context())
	if err != nil {
		h.logger.Error("course summaries", zap.Error(err))
		response.Internal(c, "failed to load course summaries")
		return
	}
	response.OK(c, list)
}
