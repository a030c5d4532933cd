package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/queue"
)

// InvoiceQueue is the job queue the dispatcher writes to.
type InvoiceQueue interface {
	EnqueueInvoiceEmail(ctx context.Context, payload queue.InvoiceEmailPayload) error
}

// Dispatcher hands finalized invoices to the email worker through the job queue.
type Dispatcher struct {
	queue  InvoiceQueue
	logger *zap.Logger
}

// NewDispatcher creates a queue-backed invoice notifier.
func NewDispatcher(q InvoiceQueue, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: q, logger: logger}
}

// NotifyInvoice enqueues an invoice email job.
func (d *Dispatcher) NotifyInvoice(ctx context.Context, inv models.Invoice) error {
	raw, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	payload := queue.InvoiceEmailPayload{
		PaymentID:      inv.PaymentID,
		EnrollmentID:   inv.EnrollmentID,
		RecipientEmail: inv.StudentEmail,
		RecipientName:  inv.StudentName,
		Invoice:        raw,
	}
	if err := d.queue.EnqueueInvoiceEmail(ctx, payload); err != nil {
		return fmt.Errorf("enqueue invoice email: %w", err)
	}
	d.logger.Debug("invoice email queued", zap.String("payment_id", inv.PaymentID.String()))
	return nil
}
