package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/pkg/queue"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) SendInvoiceEmail(_ context.Context, recipient string, inv models.Invoice) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, recipient)
	return []byte("<html>" + inv.InvoiceNumber + "</html>"), nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeLogs struct {
	mu      sync.Mutex
	status  map[uuid.UUID]string
	reasons map[uuid.UUID]string
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{status: map[uuid.UUID]string{}, reasons: map[uuid.UUID]string{}}
}

func (l *fakeLogs) Begin(_ context.Context, e *models.EmailLog) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = *e.PaymentID
	if l.status[e.ID] == models.EmailLogStatusSent {
		return true, nil
	}
	l.status[e.ID] = models.EmailLogStatusPending
	return false, nil
}

func (l *fakeLogs) MarkSent(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status[id] = models.EmailLogStatusSent
	return nil
}

func (l *fakeLogs) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status[id] = models.EmailLogStatusFailed
	l.reasons[id] = reason
	return nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (a *fakeArchive) PutInvoice(_ context.Context, key string, _ []byte) error {
	a.keys = append(a.keys, key)
	return a.err
}

type harness struct {
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	q       *queue.Queue
	sender  *fakeSender
	logs    *fakeLogs
	archive *fakeArchive
	p       *InvoiceEmailProcessor
}

func newHarness(t *testing.T) *harness {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	h := &harness{
		mr:      mr,
		rdb:     rdb,
		q:       queue.NewQueue(rdb, nil),
		sender:  &fakeSender{},
		logs:    newFakeLogs(),
		archive: &fakeArchive{},
	}
	h.p = NewInvoiceEmailProcessor(h.q, rdb, h.sender, h.logs, h.archive, nil)
	h.p.backoff = 10 * time.Millisecond
	return h
}

func invoiceJob(t *testing.T) (*queue.Job, models.Invoice) {
	inv := models.Invoice{
		InvoiceNumber: "INV-1",
		PaymentID:     uuid.New(),
		EnrollmentID:  uuid.New(),
		CourseID:      uuid.New(),
		StudentEmail:  "ana@example.com",
		CourseName:    "Go 101",
	}
	raw, err := json.Marshal(inv)
	require.NoError(t, err)
	body, err := json.Marshal(queue.InvoiceEmailPayload{
		PaymentID:      inv.PaymentID,
		EnrollmentID:   inv.EnrollmentID,
		RecipientEmail: inv.StudentEmail,
		Invoice:        raw,
	})
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Type: queue.JobTypeInvoiceEmail, Queue: queue.QueueEmails, Payload: body}, inv
}

func TestProcessSendsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job, inv := invoiceJob(t)

	require.NoError(t, h.p.Process(ctx, job))
	require.NoError(t, h.p.Process(ctx, job), "duplicate job is skipped")

	assert.Equal(t, 1, h.sender.count())
	assert.Equal(t, models.EmailLogStatusSent, h.logs.status[inv.PaymentID])
	assert.Equal(t, []string{"invoices/" + inv.CourseID.String() + "/" + inv.PaymentID.String() + ".html"}, h.archive.keys)

	val, err := h.mr.Get(claimKey(inv.PaymentID))
	require.NoError(t, err)
	assert.Equal(t, "sent", val)
}

func TestProcessSkipsWhenLogAlreadySent(t *testing.T) {
	h := newHarness(t)
	job, inv := invoiceJob(t)
	h.logs.status[inv.PaymentID] = models.EmailLogStatusSent

	require.NoError(t, h.p.Process(context.Background(), job))
	assert.Zero(t, h.sender.count())
}

func TestProcessFailureReleasesClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job, inv := invoiceJob(t)
	h.sender.err = errors.New("relay down")

	err := h.p.Process(ctx, job)
	require.Error(t, err)
	assert.Equal(t, models.EmailLogStatusFailed, h.logs.status[inv.PaymentID])
	assert.Equal(t, "relay down", h.logs.reasons[inv.PaymentID])
	assert.False(t, h.mr.Exists(claimKey(inv.PaymentID)))

	h.sender.err = nil
	require.NoError(t, h.p.Process(ctx, job))
	assert.Equal(t, 1, h.sender.count())
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.archive.err = errors.New("s3 down")
	job, _ := invoiceJob(t)
	require.NoError(t, h.p.Process(context.Background(), job))
	assert.Equal(t, 1, h.sender.count())
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	h := newHarness(t)
	err := h.p.Process(context.Background(), &queue.Job{Type: "nope"})
	assert.Error(t, err)
}

func TestRunProcessesQueueAndRetries(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, inv := invoiceJob(t)
	raw, _ := json.Marshal(inv)
	h.sender.err = errors.New("relay down")
	require.NoError(t, h.q.EnqueueInvoiceEmail(ctx, queue.InvoiceEmailPayload{
		PaymentID:      inv.PaymentID,
		EnrollmentID:   inv.EnrollmentID,
		RecipientEmail: inv.StudentEmail,
		Invoice:        raw,
	}))

	done := make(chan struct{})
	go func() {
		h.p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		n, _ := h.q.Len(context.Background(), queue.QueueDLQ)
		return n == 1
	}, 5*time.Second, 20*time.Millisecond, "job lands in the DLQ after MaxRetries")
	assert.Zero(t, h.sender.count())

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}
