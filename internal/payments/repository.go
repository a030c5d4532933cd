package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
)

// Columns is the select list matching ScanPayment.
const Columns = `id, user_id, enrollment_id, course_id, provider, amount_cents, currency, transaction_id, status, invoice, completed_at, created_at, updated_at`

// Row is satisfied by pgx.Row and pgx.Rows.
type Row interface {
	Scan(dest ...any) error
}

// ScanPayment scans one row selected with Columns.
func ScanPayment(row Row) (*models.Payment, error) {
	var p models.Payment
	var invoice []byte
	if err := row.Scan(&p.ID, &p.UserID, &p.EnrollmentID, &p.CourseID, &p.Provider, &p.AmountCents, &p.Currency,
		&p.TransactionID, &p.Status, &invoice, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(invoice) > 0 {
		p.Invoice = invoice
	}
	return &p, nil
}

// Repository handles payment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending payment for a checkout session.
func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (user_id, enrollment_id, course_id, provider, amount_cents, currency, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}
	err := r.pool.QueryRow(ctx, q, p.UserID, p.EnrollmentID, p.CourseID, p.Provider, p.AmountCents, p.Currency, p.TransactionID, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// GetByID returns a payment by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM payments WHERE id = $1`, id)
}

// GetByTransactionID returns the payment for a checkout session id.
func (r *Repository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM payments WHERE transaction_id = $1`, transactionID)
}

// LatestForEnrollment returns the most recent payment attempt of an enrollment.
func (r *Repository) LatestForEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM payments WHERE enrollment_id = $1 ORDER BY created_at DESC LIMIT 1`, enrollmentID)
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*models.Payment, error) {
	p, err := ScanPayment(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// MarkFailed moves a pending payment to failed. Completed payments are left alone.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE payments SET status = 'failed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// List returns payments, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status models.PaymentStatus, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+Columns+` FROM payments
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Payment
	for rows.Next() {
		p, err := ScanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}
