package payments

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/response"
	"github.com/vighneshparab/SkyWings-sub000/pkg/storage"
)

// PaymentReader is the lookup the invoice endpoint needs.
type PaymentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
}

// InvoiceLinker resolves archived invoices to download links.
type InvoiceLinker interface {
	InvoiceExists(ctx context.Context, key string) bool
	InvoiceDownloadURL(ctx context.Context, key string) (string, error)
}

// Handler serves payment endpoints.
type Handler struct {
	repo   PaymentReader
	linker InvoiceLinker
	logger *zap.Logger
}

// NewHandler creates a payments handler. linker may be nil when S3 is not configured.
func NewHandler(repo PaymentReader, linker InvoiceLinker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, linker: linker, logger: logger}
}

// InvoiceLink handles GET /payments/:id/invoice. The payer or an admin gets a pre-signed link.
func (h *Handler) InvoiceLink(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	userID, role, _ := middleware.CurrentUser(c)

	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			response.NotFound(c, "payment not found")
			return
		}
		h.logger.Error("get payment failed", zap.String("payment_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load payment")
		return
	}
	if p.UserID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "not your payment")
		return
	}
	if !p.IsCompleted() {
		response.NotFound(c, "invoice not available until payment completes")
		return
	}
	if h.linker == nil {
		response.ServiceUnavailable(c, "invoice archive not configured")
		return
	}
	key := storage.InvoiceKey(p.CourseID.String(), p.ID.String())
	if !h.linker.InvoiceExists(c.Request.Context(), key) {
		response.NotFound(c, "invoice not archived yet")
		return
	}
	url, err := h.linker.InvoiceDownloadURL(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign invoice failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to create download link")
		return
	}
	response.OK(c, gin.H{"url": url, "invoice": p.Invoice})
}
