package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vighneshparab/SkyWings-sub000/internal/courses"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
)

const defaultLimit = 100

// StudentEnrollment is one row of the student dashboard.
type StudentEnrollment struct {
	models.Enrollment
	CourseTitle      string `json:"course_title"`
	FeeCents         int64  `json:"fee_cents"`
	Currency         string `json:"currency"`
	WaitlistPosition int    `json:"waitlist_position,omitempty"`
}

// RosterStudent is a seated or queued student of a course.
type RosterStudent struct {
	StudentID uuid.UUID `json:"student_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Position  int       `json:"position,omitempty"`
}

// Roster lists who holds a seat and who is waiting, in queue order.
type Roster struct {
	Course   models.Course   `json:"course"`
	Enrolled []RosterStudent `json:"enrolled"`
	Waitlist []RosterStudent `json:"waitlist"`
}

// CourseSummary aggregates seat usage and revenue of one course.
type CourseSummary struct {
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	InstructorID    uuid.UUID `json:"instructor_id"`
	IsActive        bool      `json:"is_active"`
	MaxParticipants int       `json:"max_participants"`
	EnrolledCount   int       `json:"enrolled_count"`
	SeatsLeft       int       `json:"seats_left"`
	Waitlisted      int       `json:"waitlisted"`
	Pending         int       `json:"pending"`
	RevenueCents    int64     `json:"revenue_cents"`
	Currency        string    `json:"currency"`
}

// EnrollmentFilter narrows the admin enrollment listing.
type EnrollmentFilter struct {
	Status   models.EnrollmentStatus
	CourseID *uuid.UUID
	Limit    int
}

// Repository runs the read-only report queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StudentEnrollments returns every enrollment of a student, newest first, with the
// current waitlist rank for waitlisted ones.
func (r *Repository) StudentEnrollments(ctx context.Context, studentID uuid.UUID) ([]StudentEnrollment, error) {
	const q = `SELECT e.id, e.student_id, e.course_id, e.status, e.payment_status, e.created_at, e.updated_at,
		c.title, c.fee_cents, c.currency,
		COALESCE((SELECT COUNT(*) FROM course_waitlist w2
			WHERE w2.course_id = w.course_id AND w2.position <= w.position), 0)
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		LEFT JOIN course_waitlist w ON w.course_id = e.course_id AND w.student_id = e.student_id
		WHERE e.student_id = $1
		ORDER BY e.created_at DESC`
	rows, err := r.pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, fmt.Errorf("student enrollments: %w", err)
	}
	defer rows.Close()
	out := []StudentEnrollment{}
	for rows.Next() {
		var s StudentEnrollment
		if err := rows.Scan(&s.ID, &s.StudentID, &s.CourseID, &s.Status, &s.PaymentStatus, &s.CreatedAt, &s.UpdatedAt,
			&s.CourseTitle, &s.FeeCents, &s.Currency, &s.WaitlistPosition); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Roster returns the seated students and the waitlist of a course.
func (r *Repository) Roster(ctx context.Context, courseID uuid.UUID) (*Roster, error) {
	course, err := courses.ScanCourse(r.pool.QueryRow(ctx, `SELECT `+courses.Columns+` FROM courses WHERE id = $1`, courseID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, courses.ErrCourseNotFound
		}
		return nil, err
	}
	out := &Roster{Course: *course}

	const seatedQ = `SELECT u.id, u.full_name, u.email FROM course_students s
		JOIN users u ON u.id = s.student_id
		WHERE s.course_id = $1 ORDER BY s.enrolled_at`
	if out.Enrolled, err = r.students(ctx, seatedQ, courseID, false); err != nil {
		return nil, fmt.Errorf("roster seats: %w", err)
	}
	const waitQ = `SELECT u.id, u.full_name, u.email FROM course_waitlist w
		JOIN users u ON u.id = w.student_id
		WHERE w.course_id = $1 ORDER BY w.position`
	if out.Waitlist, err = r.students(ctx, waitQ, courseID, true); err != nil {
		return nil, fmt.Errorf("roster waitlist: %w", err)
	}
	return out, nil
}

func (r *Repository) students(ctx context.Context, q string, courseID uuid.UUID, ranked bool) ([]RosterStudent, error) {
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RosterStudent{}
	for rows.Next() {
		var s RosterStudent
		if err := rows.Scan(&s.StudentID, &s.FullName, &s.Email); err != nil {
			return nil, err
		}
		if ranked {
			s.Position = len(out) + 1
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Enrollments lists enrollments across courses for administrators.
func (r *Repository) Enrollments(ctx context.Context, f EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	q := `SELECT e.id, e.student_id, e.course_id, e.status, e.payment_status, e.created_at, e.updated_at,
		c.title, u.full_name, u.email
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		JOIN users u ON u.id = e.student_id
		WHERE 1=1`
	args := pgx.NamedArgs{}
	if f.Status != "" {
		q += ` AND e.status = @status`
		args["status"] = string(f.Status)
	}
	if f.CourseID != nil {
		q += ` AND e.course_id = @course_id`
		args["course_id"] = *f.CourseID
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	q += ` ORDER BY e.created_at DESC LIMIT @limit`
	args["limit"] = limit

	rows, err := r.pool.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()
	out := []models.EnrollmentDetail{}
	for rows.Next() {
		var d models.EnrollmentDetail
		if err := rows.Scan(&d.ID, &d.StudentID, &d.CourseID, &d.Status, &d.PaymentStatus, &d.CreatedAt, &d.UpdatedAt,
			&d.CourseTitle, &d.StudentName, &d.StudentEmail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CourseSummaries returns seat usage, queue length and collected revenue per course.
func (r *Repository) CourseSummaries(ctx context.Context) ([]CourseSummary, error) {
	const q = `SELECT c.id, c.title, c.instructor_id, c.is_active, c.max_participants, c.enrolled_count, c.currency,
		(SELECT COUNT(*) FROM course_waitlist w WHERE w.course_id = c.id),
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'pending'),
		(SELECT COALESCE(SUM(p.amount_cents), 0) FROM payments p WHERE p.course_id = c.id AND p.status = 'completed')
		FROM courses c
		ORDER BY c.created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("course summaries: %w", err)
	}
	defer rows.Close()
	out := []CourseSummary{}
	for rows.Next() {
		var s CourseSummary
		if err := rows.Scan(&s.CourseID, &s.Title, &s.InstructorID, &s.IsActive, &s.MaxParticipants, &s.EnrolledCount,
			&s.Currency, &s.Waitlisted, &s.Pending, &s.RevenueCents); err != nil {
			return nil, err
		}
		if left := s.MaxParticipants - s.EnrolledCount; left > 0 {
			s.SeatsLeft = left
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
