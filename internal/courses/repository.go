package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
)

var (
	// ErrCourseNotFound is returned when no course matches the id.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCapacityBelowEnrolled is returned when shrinking a course below its seated students.
	ErrCapacityBelowEnrolled = errors.New("max_participants cannot be lower than enrolled students")
)

// Columns is the select list matching ScanCourse.
const Columns = `id, title, description, instructor_id, fee_cents, currency, max_participants, enrolled_count, is_active, created_at, updated_at`

// Row is satisfied by pgx.Row and pgx.Rows.
type Row interface {
	Scan(dest ...any) error
}

// ScanCourse scans one row selected with Columns.
func ScanCourse(row Row) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.InstructorID, &c.FeeCents, &c.Currency,
		&c.MaxParticipants, &c.EnrolledCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListFilter narrows List.
type ListFilter struct {
	ActiveOnly   bool
	InstructorID *uuid.UUID
}

// Update carries the optional fields of a course update. Nil means unchanged.
type Update struct {
	Title           *string
	Description     *string
	FeeCents        *int64
	MaxParticipants *int
	IsActive        *bool
}

// Repository handles course persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a course repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new course.
func (r *Repository) Create(ctx context.Context, c *models.Course) error {
	const q = `INSERT INTO courses (title, description, instructor_id, fee_cents, currency, max_participants, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, enrolled_count, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.Title, c.Description, c.InstructorID, c.FeeCents, c.Currency, c.MaxParticipants, c.IsActive).
		Scan(&c.ID, &c.EnrolledCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// GetByID returns a course by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := ScanCourse(r.pool.QueryRow(ctx, `SELECT `+Columns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// List returns courses ordered by title.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Course, error) {
	const q = `SELECT ` + Columns + ` FROM courses
		WHERE (NOT $1 OR is_active) AND ($2::uuid IS NULL OR instructor_id = $2)
		ORDER BY title`
	rows, err := r.pool.Query(ctx, q, f.ActiveOnly, f.InstructorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Course
	for rows.Next() {
		c, err := ScanCourse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Update applies the non-nil fields. Capacity may not drop below enrolled_count.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u Update) (*models.Course, error) {
	const q = `UPDATE courses SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			fee_cents = COALESCE($4, fee_cents),
			max_participants = COALESCE($5, max_participants),
			is_active = COALESCE($6, is_active),
			updated_at = NOW()
		WHERE id = $1 AND ($5::int IS NULL OR $5::int >= enrolled_count)
		RETURNING ` + Columns
	c, err := ScanCourse(r.pool.QueryRow(ctx, q, id, u.Title, u.Description, u.FeeCents, u.MaxParticipants, u.IsActive))
	if err == nil {
		return c, nil
	}
	if !database.IsNoRows(err) {
		return nil, fmt.Errorf("update course: %w", err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrCapacityBelowEnrolled
}
