package courses

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/response"
)

// Store is the course persistence the handler needs.
type Store interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	List(ctx context.Context, f ListFilter) ([]models.Course, error)
	Update(ctx context.Context, id uuid.UUID, u Update) (*models.Course, error)
}

// CreateRequest is the body for POST /course.
type CreateRequest struct {
	Title           string  `json:"title" binding:"required"`
	Description     string  `json:"description"`
	FeeCents        int64   `json:"fee_cents" binding:"required,gt=0"`
	MaxParticipants int     `json:"max_participants" binding:"required,gt=0"`
	InstructorID    *string `json:"instructor_id" binding:"omitempty,uuid"` // admin only; defaults to caller
	IsActive        *bool   `json:"is_active"`
}

// UpdateRequest is the body for PATCH /course/:id.
type UpdateRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1"`
	Description     *string `json:"description"`
	FeeCents        *int64  `json:"fee_cents" binding:"omitempty,gt=0"`
	MaxParticipants *int    `json:"max_participants" binding:"omitempty,gte=0"`
	IsActive        *bool   `json:"is_active"`
}

// CourseView is a course with its remaining seats.
type CourseView struct {
	models.Course
	SeatsLeft int `json:"seats_left"`
}

func toView(c models.Course) CourseView {
	return CourseView{Course: c, SeatsLeft: c.SeatsLeft()}
}

// Handler handles course catalog endpoints.
type Handler struct {
	repo     Store
	currency string
	logger   *zap.Logger
}

// NewHandler creates a course handler. currency is applied to new courses.
func NewHandler(repo Store, currency string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "usd"
	}
	return &Handler{repo: repo, currency: strings.ToLower(currency), logger: logger}
}

// List handles GET /course. Students see active courses; ?mine=1 lists the instructor's own,
// ?all=1 includes inactive courses for instructors and admins.
func (h *Handler) List(c *gin.Context) {
	userID, role, _ := middleware.CurrentUser(c)
	f := ListFilter{ActiveOnly: true}
	if role != string(models.RoleStudent) && c.Query("all") == "1" {
		f.ActiveOnly = false
	}
	if role == string(models.RoleInstructor) && c.Query("mine") == "1" {
		f.InstructorID = &userID
		f.ActiveOnly = false
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list courses failed", zap.Error(err))
		response.Internal(c, "failed to list courses")
		return
	}
	views := make([]CourseView, 0, len(list))
	for _, course := range list {
		views = append(views, toView(course))
	}
	response.OK(c, views)
}

// Get handles GET /course/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	response.OK(c, toView(*course))
}

// Create handles POST /course (instructor or admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, role, _ := middleware.CurrentUser(c)

	instructorID := userID
	if req.InstructorID != nil {
		if role != string(models.RoleAdmin) {
			response.Forbidden(c, "only admins may assign another instructor")
			return
		}
		instructorID = uuid.MustParse(*req.InstructorID)
	}
	course := &models.Course{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		InstructorID:    instructorID,
		FeeCents:        req.FeeCents,
		Currency:        h.currency,
		MaxParticipants: req.MaxParticipants,
		IsActive:        true,
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
	if err := h.repo.Create(c.Request.Context(), course); err != nil {
		h.logger.Error("create course failed", zap.Error(err))
		response.Internal(c, "failed to create course")
		return
	}
	response.Created(c, toView(*course))
}

// Update handles PATCH /course/:id. Instructors may only edit their own courses.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, role, _ := middleware.CurrentUser(c)

	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	if role != string(models.RoleAdmin) && existing.InstructorID != userID {
		response.Forbidden(c, "only the course instructor or an admin can edit this course")
		return
	}
	updated, err := h.repo.Update(c.Request.Context(), id, Update{
		Title:           req.Title,
		Description:     req.Description,
		FeeCents:        req.FeeCents,
		MaxParticipants: req.MaxParticipants,
		IsActive:        req.IsActive,
	})
	if err != nil {
		h.writeErr(c, err)
		return
	}
	response.OK(c, toView(*updated))
}

func (h *Handler) writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCourseNotFound):
		response.NotFound(c, "course not found")
	case errors.Is(err, ErrCapacityBelowEnrolled):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("course request failed", zap.Error(err))
		response.Internal(c, "course request failed")
	}
}
