package enrollment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/response"
)

// PaymentSuccessRequest is the body for POST /course/payment-success.
type PaymentSuccessRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Handler serves the enroll and payment confirmation endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an enrollment handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Enroll handles POST /course/:id/enroll (students).
func (h *Handler) Enroll(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	studentID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	out, err := h.svc.RequestEnrollment(c.Request.Context(), studentID, courseID)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	if out.Waitlisted {
		response.OK(c, gin.H{
			"message":  "Course is full. You have been added to the waitlist.",
			"position": out.WaitlistPosition,
		})
		return
	}
	response.OK(c, gin.H{
		"message":       "Checkout session created",
		"url":           out.CheckoutURL,
		"enrollment_id": out.EnrollmentID,
		"payment_id":    out.PaymentID,
	})
}

// PaymentSuccess handles POST /course/payment-success. It is safe to call repeatedly.
func (h *Handler) PaymentSuccess(c *gin.Context) {
	var req PaymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	inv, already, err := h.svc.FinalizeEnrollment(c.Request.Context(), Actor{ID: userID, Role: models.Role(role)}, req.SessionID)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	msg := "Payment successful. You are enrolled."
	switch {
	case already:
		msg = "Payment already processed."
	case inv.EnrollmentStatus == models.EnrollmentStatusWaitlisted:
		msg = "Payment received, but the course filled up. You have been added to the waitlist."
	}
	response.OK(c, gin.H{"message": msg, "invoiceData": inv})
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrPaymentRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPaymentForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyEnrolled), errors.Is(err, ErrCourseInactive), errors.Is(err, ErrPaymentNotSuccessful):
		return http.StatusBadRequest
	case errors.Is(err, ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrGatewayRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeErr(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("enrollment request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "internal error")
	case http.StatusServiceUnavailable:
		h.logger.Warn("payment gateway unavailable", zap.Error(err))
		response.ServiceUnavailable(c, "payment provider unavailable, please try again")
	case http.StatusBadGateway:
		h.logger.Warn("payment gateway rejected request", zap.Error(err))
		response.BadGateway(c, "payment provider rejected the request")
	default:
		response.Fail(c, status, rootMessage(err))
	}
}

// rootMessage returns the sentinel text without wrapping context.
func rootMessage(err error) string {
	for _, known := range []error{
		ErrCourseNotFound, ErrCourseInactive, ErrAlreadyEnrolled, ErrPaymentRecordNotFound,
		ErrPaymentForbidden, ErrPaymentNotSuccessful,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
