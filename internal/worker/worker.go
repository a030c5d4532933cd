package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/notify"
	"github.com/vighneshparab/SkyWings-sub000/pkg/queue"
	"github.com/vighneshparab/SkyWings-sub000/pkg/storage"
)

const (
	// claimTTL bounds how long a crashed worker can hold an invoice email.
	claimTTL = 10 * time.Minute
	// sentTTL keeps the delivered marker long after any provider redelivery.
	sentTTL = 7 * 24 * time.Hour
)

// JobQueue is the subset of the Redis queue the processor uses.
type JobQueue interface {
	Dequeue(ctx context.Context, queues ...string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
}

// InvoiceSender renders and delivers an invoice email.
type InvoiceSender interface {
	SendInvoiceEmail(ctx context.Context, recipient string, inv models.Invoice) ([]byte, error)
}

// EmailLogStore records deliveries.
type EmailLogStore interface {
	Begin(ctx context.Context, l *models.EmailLog) (alreadySent bool, err error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// InvoiceArchiver stores rendered invoices.
type InvoiceArchiver interface {
	PutInvoice(ctx context.Context, key string, html []byte) error
}

// InvoiceEmailProcessor processes invoice email jobs: claim, send, log, archive.
type InvoiceEmailProcessor struct {
	queue    JobQueue
	rdb      *redis.Client
	sender   InvoiceSender
	logs     EmailLogStore
	archiver InvoiceArchiver
	backoff  time.Duration
	logger   *zap.Logger
}

// NewInvoiceEmailProcessor creates the processor. logs and archiver may be nil.
func NewInvoiceEmailProcessor(q JobQueue, rdb *redis.Client, sender InvoiceSender, logs EmailLogStore, archiver InvoiceArchiver, logger *zap.Logger) *InvoiceEmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceEmailProcessor{
		queue:    q,
		rdb:      rdb,
		sender:   sender,
		logs:     logs,
		archiver: archiver,
		backoff:  queue.RetryBackoff,
		logger:   logger,
	}
}

func claimKey(paymentID uuid.UUID) string {
	return "invoice-email:" + paymentID.String()
}

// Process executes one invoice email job. A payment's invoice is emailed at most once per
// successful delivery; a failed attempt releases its claim so the retry can send.
func (p *InvoiceEmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInvoiceEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.InvoiceEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	var inv models.Invoice
	if err := json.Unmarshal(payload.Invoice, &inv); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}

	key := claimKey(payload.PaymentID)
	claimed, err := p.rdb.SetNX(ctx, key, "sending", claimTTL).Result()
	if err != nil {
		return fmt.Errorf("claim invoice email: %w", err)
	}
	if !claimed {
		p.logger.Info("invoice email already sent or in progress", zap.String("payment_id", payload.PaymentID.String()))
		return nil
	}

	var entry *models.EmailLog
	if p.logs != nil {
		paymentID, enrollmentID := payload.PaymentID, payload.EnrollmentID
		entry = &models.EmailLog{
			PaymentID:      &paymentID,
			EnrollmentID:   &enrollmentID,
			EmailType:      models.EmailTypeInvoice,
			RecipientEmail: payload.RecipientEmail,
			Subject:        notify.InvoiceSubject(inv),
		}
		sent, err := p.logs.Begin(ctx, entry)
		if err != nil {
			p.release(ctx, key)
			return err
		}
		if sent {
			p.markSent(ctx, key)
			p.logger.Info("invoice email already logged as sent", zap.String("payment_id", payload.PaymentID.String()))
			return nil
		}
	}

	html, err := p.sender.SendInvoiceEmail(ctx, payload.RecipientEmail, inv)
	if err != nil {
		if entry != nil {
			if logErr := p.logs.MarkFailed(ctx, entry.ID, err.Error()); logErr != nil {
				p.logger.Warn("mark email log failed", zap.Error(logErr))
			}
		}
		p.release(ctx, key)
		return fmt.Errorf("send invoice email: %w", err)
	}

	p.markSent(ctx, key)
	if entry != nil {
		if err := p.logs.MarkSent(ctx, entry.ID); err != nil {
			p.logger.Warn("mark email log sent", zap.Error(err))
		}
	}
	if p.archiver != nil {
		archiveKey := storage.InvoiceKey(inv.CourseID.String(), inv.PaymentID.String())
		if err := p.archiver.PutInvoice(ctx, archiveKey, html); err != nil {
			p.logger.Warn("archive invoice failed", zap.String("key", archiveKey), zap.Error(err))
		}
	}
	p.logger.Info("invoice email processed", zap.String("payment_id", payload.PaymentID.String()), zap.String("to", payload.RecipientEmail))
	return nil
}

func (p *InvoiceEmailProcessor) markSent(ctx context.Context, key string) {
	if err := p.rdb.Set(ctx, key, "sent", sentTTL).Err(); err != nil {
		p.logger.Warn("mark invoice email sent", zap.String("key", key), zap.Error(err))
	}
}

func (p *InvoiceEmailProcessor) release(ctx context.Context, key string) {
	if err := p.rdb.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
		p.logger.Warn("release invoice email claim", zap.String("key", key), zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *InvoiceEmailProcessor) Run(ctx context.Context) {
	p.logger.Info("invoice email worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("invoice email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, queue.QueueEmails)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job, err); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *InvoiceEmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
