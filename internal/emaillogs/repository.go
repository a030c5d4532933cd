package emaillogs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	EnrollmentID *uuid.UUID
	PaymentID    *uuid.UUID
	Status       string
	Limit        int
}

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Begin records a pending delivery for the payment's email of emailType. The row is unique per
// (payment, type); alreadySent is true when an earlier attempt delivered it.
func (r *Repository) Begin(ctx context.Context, l *models.EmailLog) (alreadySent bool, err error) {
	const q = `INSERT INTO email_logs (payment_id, enrollment_id, email_type, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (payment_id, email_type) DO UPDATE SET
			recipient_email = EXCLUDED.recipient_email,
			subject = EXCLUDED.subject,
			status = CASE WHEN email_logs.status = 'sent' THEN 'sent' ELSE 'pending' END
		RETURNING id, status, created_at`
	err = r.pool.QueryRow(ctx, q, l.PaymentID, l.EnrollmentID, l.EmailType, l.RecipientEmail, l.Subject).
		Scan(&l.ID, &l.Status, &l.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("begin email log: %w", err)
	}
	return l.Status == models.EmailLogStatusSent, nil
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE email_logs SET status = 'sent', sent_at = NOW(), error_message = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// MarkFailed records a failed attempt.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE email_logs SET status = 'failed', error_message = $2 WHERE id = $1 AND status <> 'sent'`
	_, err := r.pool.Exec(ctx, q, id, reason)
	return err
}

// List returns email logs, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]*models.EmailLog, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	const q = `SELECT id, payment_id, enrollment_id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE ($1::uuid IS NULL OR enrollment_id = $1)
		  AND ($2::uuid IS NULL OR payment_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4`
	rows, err := r.pool.Query(ctx, q, f.EnrollmentID, f.PaymentID, f.Status, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.PaymentID, &el.EnrollmentID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
