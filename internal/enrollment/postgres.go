package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vighneshparab/SkyWings-sub000/internal/auth"
	"github.com/vighneshparab/SkyWings-sub000/internal/courses"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
)

const (
	enrollmentColumns   = `id, student_id, course_id, status, payment_status, created_at, updated_at`
	enrollmentPairIndex = "enrollments_student_course_key"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool     *pgxpool.Pool
	courses  *courses.Repository
	users    *auth.Repository
	payments *payments.Repository
}

// NewPostgresStore creates a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:     pool,
		courses:  courses.NewRepository(pool),
		users:    auth.NewRepository(pool),
		payments: payments.NewRepository(pool),
	}
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.Status, &e.PaymentStatus, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetCourse returns a course by ID.
func (s *PostgresStore) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return s.courses.GetByID(ctx, id)
}

// GetUser returns a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, ErrStudentNotFound
	}
	return u, err
}

// IsEnrolled reports whether the student holds a seat in the course.
func (s *PostgresStore) IsEnrolled(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM course_students WHERE course_id = $1 AND student_id = $2)`
	var ok bool
	err := s.pool.QueryRow(ctx, q, courseID, studentID).Scan(&ok)
	return ok, err
}

// GetEnrollment returns an enrollment by ID.
func (s *PostgresStore) GetEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	return scanEnrollment(s.pool.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
}

// GetEnrollmentByPair returns the enrollment of a student in a course.
func (s *PostgresStore) GetEnrollmentByPair(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	return scanEnrollment(s.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID))
}

// CreateEnrollment inserts a pending enrollment. The pair's unique constraint decides concurrent inserts.
func (s *PostgresStore) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	const q = `INSERT INTO enrollments (student_id, course_id, status, payment_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, e.StudentID, e.CourseID, e.Status, e.PaymentStatus).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, enrollmentPairIndex) {
			return ErrAlreadyEnrolled
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ClaimRetry takes over a pending enrollment for a new checkout if nobody else did since seen.
func (s *PostgresStore) ClaimRetry(ctx context.Context, id uuid.UUID, seen time.Time) (*models.Enrollment, error) {
	const q = `UPDATE enrollments SET updated_at = clock_timestamp()
		WHERE id = $1 AND updated_at = $2 AND status = 'pending' AND payment_status = 'unpaid'
		RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(s.pool.QueryRow(ctx, q, id, seen))
	if errors.Is(err, ErrEnrollmentNotFound) {
		return nil, ErrAlreadyEnrolled
	}
	return e, err
}

// AddToWaitlist queues the student once and returns their rank in the course's waitlist.
func (s *PostgresStore) AddToWaitlist(ctx context.Context, courseID, studentID uuid.UUID) (int, error) {
	if _, err := s.pool.Exec(ctx, `INSERT INTO course_waitlist (course_id, student_id) VALUES ($1, $2)
		ON CONFLICT (course_id, student_id) DO NOTHING`, courseID, studentID); err != nil {
		return 0, err
	}
	return s.WaitlistPosition(ctx, courseID, studentID)
}

// WaitlistPosition returns the 1-based rank of the student, or 0 when not queued.
func (s *PostgresStore) WaitlistPosition(ctx context.Context, courseID, studentID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM course_waitlist w
		WHERE w.course_id = $1 AND w.position <= (
			SELECT position FROM course_waitlist WHERE course_id = $1 AND student_id = $2)`
	var pos int
	err := s.pool.QueryRow(ctx, q, courseID, studentID).Scan(&pos)
	return pos, err
}

// CreatePayment inserts a pending payment.
func (s *PostgresStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	err := s.payments.Create(ctx, p)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateTransaction
	}
	return err
}

// LatestPaymentForEnrollment returns the newest payment attempt, or nil.
func (s *PostgresStore) LatestPaymentForEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Payment, error) {
	p, err := s.payments.LatestForEnrollment(ctx, enrollmentID)
	if errors.Is(err, payments.ErrPaymentNotFound) {
		return nil, nil
	}
	return p, err
}

// GetPaymentByTransactionID returns the payment of a checkout session.
func (s *PostgresStore) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	p, err := s.payments.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, payments.ErrPaymentNotFound) {
		return nil, ErrPaymentRecordNotFound
	}
	return p, err
}

// MarkPaymentFailed marks a pending payment failed.
func (s *PostgresStore) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	return s.payments.MarkFailed(ctx, id)
}

// FinalizePayment runs the seat assignment in one transaction. The payment row lock makes
// repeated calls reads; the conditional enrolled_count update keeps seats within capacity.
func (s *PostgresStore) FinalizePayment(ctx context.Context, p FinalizeParams) (*FinalizeResult, error) {
	var result *FinalizeResult
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		pay, err := payments.ScanPayment(tx.QueryRow(ctx, `SELECT `+payments.Columns+` FROM payments WHERE id = $1 FOR UPDATE`, p.PaymentID))
		if err != nil {
			if database.IsNoRows(err) {
				return ErrPaymentRecordNotFound
			}
			return fmt.Errorf("lock payment: %w", err)
		}
		if pay.IsCompleted() {
			inv, err := decodeInvoice(pay.Invoice)
			if err != nil {
				return err
			}
			result = &FinalizeResult{Invoice: *inv}
			return nil
		}

		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, p.CourseID).Scan(&locked); err != nil {
			if database.IsNoRows(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("lock course: %w", err)
		}

		status, err := seatOrWaitlist(ctx, tx, p.CourseID, p.StudentID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `UPDATE enrollments SET status = $2, payment_status = 'paid', updated_at = NOW() WHERE id = $1`,
			p.EnrollmentID, status)
		if err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrEnrollmentNotFound
		}

		inv := p.Invoice
		inv.EnrollmentStatus = status
		inv.PaymentStatus = models.PaymentStatusCompleted
		raw, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("encode invoice: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE payments SET status = 'completed', invoice = $2, completed_at = NOW(), updated_at = NOW()
			WHERE id = $1`, p.PaymentID, raw); err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
		result = &FinalizeResult{Invoice: inv, Applied: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// seatOrWaitlist gives the student a seat if one is free, otherwise queues them.
func seatOrWaitlist(ctx context.Context, tx pgx.Tx, courseID, studentID uuid.UUID) (models.EnrollmentStatus, error) {
	var seated bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM course_students WHERE course_id = $1 AND student_id = $2)`,
		courseID, studentID).Scan(&seated); err != nil {
		return "", fmt.Errorf("check seat: %w", err)
	}
	if seated {
		return models.EnrollmentStatusActive, nil
	}

	tag, err := tx.Exec(ctx, `UPDATE courses SET enrolled_count = enrolled_count + 1, updated_at = NOW()
		WHERE id = $1 AND enrolled_count < max_participants`, courseID)
	if err != nil {
		return "", fmt.Errorf("claim seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `INSERT INTO course_waitlist (course_id, student_id) VALUES ($1, $2)
			ON CONFLICT (course_id, student_id) DO NOTHING`, courseID, studentID); err != nil {
			return "", fmt.Errorf("waitlist student: %w", err)
		}
		return models.EnrollmentStatusWaitlisted, nil
	}

	if _, err := tx.Exec(ctx, `INSERT INTO course_students (course_id, student_id) VALUES ($1, $2)`, courseID, studentID); err != nil {
		return "", fmt.Errorf("seat student: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM course_waitlist WHERE course_id = $1 AND student_id = $2`, courseID, studentID); err != nil {
		return "", fmt.Errorf("leave waitlist: %w", err)
	}
	return models.EnrollmentStatusActive, nil
}
