package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
)

// EventEnrollmentUpdated is pushed to the student when a payment is finalized.
const EventEnrollmentUpdated = "enrollment_updated"

const (
	defaultCheckoutTTL = 24 * time.Hour
	defaultRetryGrace  = time.Minute
	sideEffectTimeout  = 5 * time.Second
)

// Notifier receives invoices of finalized payments. Failures never fail the finalize.
type Notifier interface {
	NotifyInvoice(ctx context.Context, inv models.Invoice) error
}

// Publisher pushes realtime events to a connected user.
type Publisher interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// Outcome is the result of RequestEnrollment: either a checkout to complete or a waitlist spot.
type Outcome struct {
	Waitlisted       bool      `json:"waitlisted"`
	WaitlistPosition int       `json:"waitlist_position,omitempty"`
	EnrollmentID     uuid.UUID `json:"enrollment_id,omitempty"`
	PaymentID        uuid.UUID `json:"payment_id,omitempty"`
	CheckoutURL      string    `json:"url,omitempty"`
}

// Options configures the Service.
type Options struct {
	FrontendURL string
	// CheckoutTTL is how long a pending checkout blocks a new attempt.
	CheckoutTTL time.Duration
	// RetryGrace is how long an enrollment without any payment blocks a new attempt.
	RetryGrace time.Duration
	Now        func() time.Time
}

// Service runs the enrollment and payment confirmation flow.
type Service struct {
	store     Store
	gateway   payments.Gateway
	notifier  Notifier
	publisher Publisher
	opts      Options
	logger    *zap.Logger
}

// NewService creates the enrollment service. notifier and publisher may be nil.
func NewService(store Store, gateway payments.Gateway, notifier Notifier, publisher Publisher, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CheckoutTTL <= 0 {
		opts.CheckoutTTL = defaultCheckoutTTL
	}
	if opts.RetryGrace <= 0 {
		opts.RetryGrace = defaultRetryGrace
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")
	return &Service{
		store:     store,
		gateway:   gateway,
		notifier:  notifier,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// RequestEnrollment waitlists the student when the course is full, otherwise records a
// pending enrollment and payment and returns the hosted checkout URL. No seat is held.
func (s *Service) RequestEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*Outcome, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsActive {
		return nil, ErrCourseInactive
	}
	student, err := s.store.GetUser(ctx, studentID)
	if err != nil {
		return nil, err
	}

	seated, err := s.store.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check seat: %w", err)
	}
	if seated {
		return nil, ErrAlreadyEnrolled
	}

	existing, err := s.store.GetEnrollmentByPair(ctx, studentID, courseID)
	switch {
	case errors.Is(err, ErrEnrollmentNotFound):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("get enrollment: %w", err)
	default:
		ok, err := s.retryable(ctx, existing)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyEnrolled
		}
	}

	if course.IsFull() {
		pos, err := s.store.AddToWaitlist(ctx, courseID, studentID)
		if err != nil {
			return nil, fmt.Errorf("add to waitlist: %w", err)
		}
		s.logger.Info("student waitlisted",
			zap.String("course_id", courseID.String()),
			zap.String("student_id", studentID.String()),
			zap.Int("position", pos))
		return &Outcome{Waitlisted: true, WaitlistPosition: pos}, nil
	}

	var enr *models.Enrollment
	if existing != nil {
		enr, err = s.store.ClaimRetry(ctx, existing.ID, existing.UpdatedAt)
		if err != nil {
			return nil, err
		}
		s.logger.Info("retrying checkout for pending enrollment", zap.String("enrollment_id", enr.ID.String()))
	} else {
		enr = &models.Enrollment{
			StudentID:     studentID,
			CourseID:      courseID,
			Status:        models.EnrollmentStatusPending,
			PaymentStatus: models.EnrollmentUnpaid,
		}
		if err := s.store.CreateEnrollment(ctx, enr); err != nil {
			return nil, err
		}
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		AmountCents:    course.FeeCents,
		Currency:       course.Currency,
		Description:    "Enrollment: " + course.Title,
		SuccessURL:     s.opts.FrontendURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.opts.FrontendURL + "/courses/" + url.PathEscape(courseID.String()),
		CustomerEmail:  student.Email,
		IdempotencyKey: enr.ID.String() + ":" + strconv.FormatInt(enr.UpdatedAt.UnixNano(), 10),
		Metadata: map[string]string{
			"enrollment_id": enr.ID.String(),
			"course_id":     courseID.String(),
			"student_id":    studentID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open checkout: %w", err)
	}

	pay := &models.Payment{
		UserID:        studentID,
		EnrollmentID:  enr.ID,
		CourseID:      courseID,
		Provider:      models.PaymentProviderStripe,
		AmountCents:   course.FeeCents,
		Currency:      course.Currency,
		TransactionID: sess.ID,
		Status:        models.PaymentStatusPending,
	}
	if err := s.store.CreatePayment(ctx, pay); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.logger.Info("checkout opened",
		zap.String("enrollment_id", enr.ID.String()),
		zap.String("payment_id", pay.ID.String()),
		zap.String("session_id", sess.ID))
	return &Outcome{EnrollmentID: enr.ID, PaymentID: pay.ID, CheckoutURL: sess.URL}, nil
}

// retryable reports whether a pending enrollment may start a fresh checkout: its last
// payment failed, its checkout outlived CheckoutTTL, or it never got a payment at all.
func (s *Service) retryable(ctx context.Context, e *models.Enrollment) (bool, error) {
	if e.Status != models.EnrollmentStatusPending || e.PaymentStatus != models.EnrollmentUnpaid {
		return false, nil
	}
	latest, err := s.store.LatestPaymentForEnrollment(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("latest payment: %w", err)
	}
	now := s.opts.Now()
	if latest == nil {
		return now.Sub(e.UpdatedAt) > s.opts.RetryGrace, nil
	}
	switch latest.Status {
	case models.PaymentStatusFailed:
		return true, nil
	case models.PaymentStatusPending:
		return now.Sub(latest.CreatedAt) > s.opts.CheckoutTTL, nil
	default:
		return false, nil
	}
}

// FinalizeEnrollment confirms a checkout session and commits the enrollment. Calling it again
// for a completed payment returns the stored invoice with alreadyFinalized set.
func (s *Service) FinalizeEnrollment(ctx context.Context, actor Actor, sessionID string) (inv *models.Invoice, alreadyFinalized bool, err error) {
	pay, err := s.store.GetPaymentByTransactionID(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if pay.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, false, ErrPaymentForbidden
	}
	if pay.IsCompleted() {
		stored, err := decodeInvoice(pay.Invoice)
		if err != nil {
			return nil, false, err
		}
		return stored, true, nil
	}

	v, err := s.gateway.VerifySession(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("verify session: %w", err)
	}
	if !v.Paid {
		if v.Expired() {
			if err := s.store.MarkPaymentFailed(ctx, pay.ID); err != nil {
				s.logger.Warn("mark payment failed", zap.String("payment_id", pay.ID.String()), zap.Error(err))
			}
		}
		s.logger.Info("checkout not paid",
			zap.String("session_id", sessionID),
			zap.String("status", v.Status),
			zap.String("payment_status", v.PaymentStatus))
		return nil, false, ErrPaymentNotSuccessful
	}
	if v.AmountTotal != pay.AmountCents {
		s.logger.Warn("checkout amount differs from recorded payment",
			zap.String("payment_id", pay.ID.String()),
			zap.Int64("recorded", pay.AmountCents),
			zap.Int64("provider", v.AmountTotal))
	}

	enr, err := s.store.GetEnrollment(ctx, pay.EnrollmentID)
	if err != nil {
		s.logger.Error("payment without enrollment", zap.String("payment_id", pay.ID.String()), zap.Error(err))
		return nil, false, err
	}
	course, err := s.store.GetCourse(ctx, enr.CourseID)
	if err != nil {
		s.logger.Error("enrollment without course", zap.String("enrollment_id", enr.ID.String()), zap.Error(err))
		return nil, false, err
	}
	student, err := s.store.GetUser(ctx, enr.StudentID)
	if err != nil {
		s.logger.Error("enrollment without student", zap.String("enrollment_id", enr.ID.String()), zap.Error(err))
		return nil, false, err
	}

	res, err := s.store.FinalizePayment(ctx, FinalizeParams{
		PaymentID:    pay.ID,
		EnrollmentID: enr.ID,
		CourseID:     course.ID,
		StudentID:    student.ID,
		Invoice:      buildInvoice(pay, enr, course, student, s.opts.Now()),
	})
	if err != nil {
		return nil, false, fmt.Errorf("finalize payment: %w", err)
	}
	if !res.Applied {
		return &res.Invoice, true, nil
	}

	s.logger.Info("enrollment finalized",
		zap.String("enrollment_id", enr.ID.String()),
		zap.String("payment_id", pay.ID.String()),
		zap.String("status", string(res.Invoice.EnrollmentStatus)))
	s.afterCommit(ctx, res.Invoice)
	return &res.Invoice, false, nil
}

// afterCommit hands the invoice to the notifier and pushes the realtime event.
func (s *Service) afterCommit(ctx context.Context, inv models.Invoice) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if s.notifier != nil {
		if err := s.notifier.NotifyInvoice(ctx, inv); err != nil {
			s.logger.Error("invoice notification failed", zap.String("payment_id", inv.PaymentID.String()), zap.Error(err))
		}
	}
	if s.publisher != nil {
		payload := map[string]any{
			"enrollment_id":  inv.EnrollmentID,
			"course_id":      inv.CourseID,
			"status":         inv.EnrollmentStatus,
			"payment_status": models.EnrollmentPaid,
		}
		if err := s.publisher.PublishToUser(ctx, inv.StudentID, EventEnrollmentUpdated, payload); err != nil {
			s.logger.Warn("publish enrollment event failed", zap.String("student_id", inv.StudentID.String()), zap.Error(err))
		}
	}
}

func buildInvoice(p *models.Payment, e *models.Enrollment, c *models.Course, u *models.User, now time.Time) models.Invoice {
	return models.Invoice{
		InvoiceNumber:    InvoiceNumber(p.ID, now),
		PaymentID:        p.ID,
		EnrollmentID:     e.ID,
		EnrollmentStatus: models.EnrollmentStatusActive,
		StudentID:        u.ID,
		StudentName:      u.FullName,
		StudentEmail:     u.Email,
		CourseID:         c.ID,
		CourseName:       c.Title,
		CourseFeeCents:   c.FeeCents,
		TransactionID:    p.TransactionID,
		AmountCents:      p.AmountCents,
		Currency:         p.Currency,
		PaymentStatus:    models.PaymentStatusCompleted,
		IssuedAt:         now.UTC(),
	}
}

// InvoiceNumber formats INV-YYYYMMDD-XXXXXXXX from the issue date and payment id.
func InvoiceNumber(paymentID uuid.UUID, issued time.Time) string {
	return "INV-" + issued.UTC().Format("20060102") + "-" + strings.ToUpper(paymentID.String()[:8])
}

func decodeInvoice(raw json.RawMessage) (*models.Invoice, error) {
	if len(raw) == 0 {
		return nil, errors.New("completed payment has no invoice snapshot")
	}
	var inv models.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &inv, nil
}
