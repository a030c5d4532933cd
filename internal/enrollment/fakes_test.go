package enrollment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeGateway struct {
	mu          sync.Mutex
	seq         int
	sessions    map[string]*payments.Verification
	requests    []payments.CheckoutRequest
	createErr   error
	verifyErr   error
	verifyCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*payments.Verification)}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	g.sessions[id] = &payments.Verification{Status: "open", PaymentStatus: "unpaid", AmountTotal: req.AmountCents, Currency: req.Currency}
	g.requests = append(g.requests, req)
	return &payments.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) VerifySession(_ context.Context, id string) (*payments.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	v, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such session %s: %w", id, payments.ErrGatewayRejected)
	}
	cp := *v
	return &cp, nil
}

func (g *fakeGateway) pay(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.sessions[id]
	v.Paid, v.Status, v.PaymentStatus = true, "complete", "paid"
}

func (g *fakeGateway) expire(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].Status = "expired"
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

type recordingNotifier struct {
	mu       sync.Mutex
	invoices []models.Invoice
	err      error
}

func (n *recordingNotifier) NotifyInvoice(_ context.Context, inv models.Invoice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invoices = append(n.invoices, inv)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.invoices)
}

type publishedEvent struct {
	userID uuid.UUID
	event  string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishToUser(_ context.Context, userID uuid.UUID, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, event: event})
	return nil
}

type fixture struct {
	store    *MemoryStore
	gw       *fakeGateway
	notifier *recordingNotifier
	pub      *recordingPublisher
	clock    *testClock
	svc      *Service
	course   models.Course
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.SetClock(clock.Now)
	course := models.Course{
		ID:              uuid.New(),
		Title:           "Go 101",
		InstructorID:    uuid.New(),
		FeeCents:        5000,
		Currency:        "usd",
		MaxParticipants: capacity,
		IsActive:        true,
	}
	store.PutCourse(course)

	f := &fixture{
		store:    store,
		gw:       newFakeGateway(),
		notifier: &recordingNotifier{},
		pub:      &recordingPublisher{},
		clock:    clock,
		course:   course,
	}
	f.svc = NewService(store, f.gw, f.notifier, f.pub, Options{
		FrontendURL: "http://localhost:3000/",
		CheckoutTTL: 24 * time.Hour,
		Now:         clock.Now,
	}, nil)
	return f
}

func (f *fixture) student(name string) models.User {
	u := models.User{ID: uuid.New(), Email: name + "@example.com", FullName: name, Role: models.RoleStudent}
	f.store.PutUser(u)
	return u
}

// checkout requests an enrollment and returns the session id it opened.
func (f *fixture) checkout(t *testing.T, student models.User) (*Outcome, string) {
	t.Helper()
	out, err := f.svc.RequestEnrollment(context.Background(), student.ID, f.course.ID)
	require.NoError(t, err)
	require.False(t, out.Waitlisted)
	return out, strings.TrimPrefix(out.CheckoutURL, "https://checkout.test/")
}

func actor(u models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
