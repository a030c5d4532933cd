package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/response"
)

// Lister is the read side the handler needs.
type Lister interface {
	List(ctx context.Context, f Filter) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/emails. Query: enrollment_id, payment_id, status, limit.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	for param, dst := range map[string]**uuid.UUID{"enrollment_id": &f.EnrollmentID, "payment_id": &f.PaymentID} {
		if v := c.Query(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				response.BadRequest(c, "invalid "+param)
				return
			}
			*dst = &id
		}
	}
	switch s := c.Query("status"); s {
	case "", models.EmailLogStatusPending, models.EmailLogStatusSent, models.EmailLogStatusFailed:
		f.Status = s
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}
	logs, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
