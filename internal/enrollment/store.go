package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

// FinalizeParams identifies the rows a confirmed payment transitions.
type FinalizeParams struct {
	PaymentID    uuid.UUID
	EnrollmentID uuid.UUID
	CourseID     uuid.UUID
	StudentID    uuid.UUID
	Invoice      models.Invoice
}

// FinalizeResult is the committed outcome. Applied is false when another call completed
// the payment first; Invoice is then the stored snapshot.
type FinalizeResult struct {
	Invoice models.Invoice
	Applied bool
}

// Store is the persistence the enrollment service needs. Implementations enforce one
// enrollment per (student, course) and never seat more students than a course allows.
type Store interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	IsEnrolled(ctx context.Context, courseID, studentID uuid.UUID) (bool, error)

	GetEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	GetEnrollmentByPair(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	// CreateEnrollment returns ErrAlreadyEnrolled when the pair already has a row.
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	// ClaimRetry bumps updated_at of a pending enrollment if it still equals seen.
	// Losing the race returns ErrAlreadyEnrolled.
	ClaimRetry(ctx context.Context, id uuid.UUID, seen time.Time) (*models.Enrollment, error)

	// AddToWaitlist appends the student unless already queued and returns the 1-based position.
	AddToWaitlist(ctx context.Context, courseID, studentID uuid.UUID) (int, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	// LatestPaymentForEnrollment returns nil, nil when the enrollment has no payment yet.
	LatestPaymentForEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) error

	// FinalizePayment atomically seats or waitlists the student, marks the enrollment paid
	// and completes the payment with the invoice snapshot.
	FinalizePayment(ctx context.Context, p FinalizeParams) (*FinalizeResult, error)
}
