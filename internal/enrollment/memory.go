package enrollment

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

type pair struct {
	student uuid.UUID
	course  uuid.UUID
}

// MemoryStore is an in-process Store guarded by one mutex. It keeps the same guarantees
// as PostgresStore and backs tests and local runs without a database.
type MemoryStore struct {
	mu          sync.Mutex
	now         func() time.Time
	courses     map[uuid.UUID]*models.Course
	users       map[uuid.UUID]*models.User
	seats       map[uuid.UUID]map[uuid.UUID]bool
	waitlists   map[uuid.UUID][]uuid.UUID
	enrollments map[uuid.UUID]*models.Enrollment
	byPair      map[pair]uuid.UUID
	payments    map[uuid.UUID]*models.Payment
	byTxn       map[string]uuid.UUID
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		courses:     make(map[uuid.UUID]*models.Course),
		users:       make(map[uuid.UUID]*models.User),
		seats:       make(map[uuid.UUID]map[uuid.UUID]bool),
		waitlists:   make(map[uuid.UUID][]uuid.UUID),
		enrollments: make(map[uuid.UUID]*models.Enrollment),
		byPair:      make(map[pair]uuid.UUID),
		payments:    make(map[uuid.UUID]*models.Payment),
		byTxn:       make(map[string]uuid.UUID),
	}
}

// SetClock replaces the time source used for timestamps.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// PutCourse adds or replaces a course.
func (m *MemoryStore) PutCourse(c models.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.courses[c.ID] = &c
}

// PutUser adds or replaces a user.
func (m *MemoryStore) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

// Seated returns the students holding a seat in the course.
func (m *MemoryStore) Seated(courseID uuid.UUID) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, 0, len(m.seats[courseID]))
	for id := range m.seats[courseID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Waitlist returns the queued students in order.
func (m *MemoryStore) Waitlist(courseID uuid.UUID) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.waitlists[courseID]...)
}

// PaymentCount returns the number of payment rows.
func (m *MemoryStore) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// GetCourse returns a copy of the course.
func (m *MemoryStore) GetCourse(_ context.Context, id uuid.UUID) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

// GetUser returns a copy of the user.
func (m *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	cp := *u
	return &cp, nil
}

// IsEnrolled reports whether the student holds a seat.
func (m *MemoryStore) IsEnrolled(_ context.Context, courseID, studentID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[courseID][studentID], nil
}

// GetEnrollment returns a copy of the enrollment.
func (m *MemoryStore) GetEnrollment(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return nil, ErrEnrollmentNotFound
	}
	cp := *e
	return &cp, nil
}

// GetEnrollmentByPair returns the enrollment of a student in a course.
func (m *MemoryStore) GetEnrollmentByPair(_ context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[pair{studentID, courseID}]
	if !ok {
		return nil, ErrEnrollmentNotFound
	}
	cp := *m.enrollments[id]
	return &cp, nil
}

// CreateEnrollment inserts the enrollment unless the pair already has one.
func (m *MemoryStore) CreateEnrollment(_ context.Context, e *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{e.StudentID, e.CourseID}
	if _, ok := m.byPair[key]; ok {
		return ErrAlreadyEnrolled
	}
	now := m.now()
	e.ID = uuid.New()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	m.enrollments[e.ID] = &cp
	m.byPair[key] = e.ID
	return nil
}

// ClaimRetry bumps UpdatedAt when it still equals seen.
func (m *MemoryStore) ClaimRetry(_ context.Context, id uuid.UUID, seen time.Time) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok || !e.UpdatedAt.Equal(seen) || e.Status != models.EnrollmentStatusPending || e.PaymentStatus != models.EnrollmentUnpaid {
		return nil, ErrAlreadyEnrolled
	}
	next := m.now()
	if !next.After(e.UpdatedAt) {
		next = e.UpdatedAt.Add(time.Microsecond)
	}
	e.UpdatedAt = next
	cp := *e
	return &cp, nil
}

// AddToWaitlist queues the student once and returns their 1-based position.
func (m *MemoryStore) AddToWaitlist(_ context.Context, courseID, studentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enqueueLocked(courseID, studentID), nil
}

func (m *MemoryStore) enqueueLocked(courseID, studentID uuid.UUID) int {
	for i, id := range m.waitlists[courseID] {
		if id == studentID {
			return i + 1
		}
	}
	m.waitlists[courseID] = append(m.waitlists[courseID], studentID)
	return len(m.waitlists[courseID])
}

// CreatePayment inserts a payment; transaction ids are unique.
func (m *MemoryStore) CreatePayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTxn[p.TransactionID]; ok {
		return ErrDuplicateTransaction
	}
	now := m.now()
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.payments[p.ID] = &cp
	m.byTxn[p.TransactionID] = p.ID
	return nil
}

// LatestPaymentForEnrollment returns the newest payment of the enrollment, or nil.
func (m *MemoryStore) LatestPaymentForEnrollment(_ context.Context, enrollmentID uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Payment
	for _, p := range m.payments {
		if p.EnrollmentID != enrollmentID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// GetPaymentByTransactionID returns the payment of a checkout session.
func (m *MemoryStore) GetPaymentByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byTxn[transactionID]
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}
	cp := *m.payments[id]
	return &cp, nil
}

// MarkPaymentFailed marks a pending payment failed.
func (m *MemoryStore) MarkPaymentFailed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[id]; ok && p.Status == models.PaymentStatusPending {
		p.Status = models.PaymentStatusFailed
		p.UpdatedAt = m.now()
	}
	return nil
}

// FinalizePayment mirrors the PostgreSQL transaction under the store mutex.
func (m *MemoryStore) FinalizePayment(_ context.Context, p FinalizeParams) (*FinalizeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pay, ok := m.payments[p.PaymentID]
	if !ok {
		return nil, ErrPaymentRecordNotFound
	}
	if pay.IsCompleted() {
		inv, err := decodeInvoice(pay.Invoice)
		if err != nil {
			return nil, err
		}
		return &FinalizeResult{Invoice: *inv}, nil
	}
	course, ok := m.courses[p.CourseID]
	if !ok {
		return nil, ErrCourseNotFound
	}
	enr, ok := m.enrollments[p.EnrollmentID]
	if !ok {
		return nil, ErrEnrollmentNotFound
	}

	status := models.EnrollmentStatusActive
	if !m.seats[course.ID][p.StudentID] {
		if course.EnrolledCount < course.MaxParticipants {
			course.EnrolledCount++
			if m.seats[course.ID] == nil {
				m.seats[course.ID] = make(map[uuid.UUID]bool)
			}
			m.seats[course.ID][p.StudentID] = true
			m.removeFromWaitlistLocked(course.ID, p.StudentID)
		} else {
			status = models.EnrollmentStatusWaitlisted
			m.enqueueLocked(course.ID, p.StudentID)
		}
	}

	now := m.now()
	enr.Status = status
	enr.PaymentStatus = models.EnrollmentPaid
	enr.UpdatedAt = now

	inv := p.Invoice
	inv.EnrollmentStatus = status
	inv.PaymentStatus = models.PaymentStatusCompleted
	raw, err := json.Marshal(inv)
	if err != nil {
		return nil, err
	}
	pay.Status = models.PaymentStatusCompleted
	pay.Invoice = raw
	pay.CompletedAt = &now
	pay.UpdatedAt = now
	return &FinalizeResult{Invoice: inv, Applied: true}, nil
}

func (m *MemoryStore) removeFromWaitlistLocked(courseID, studentID uuid.UUID) {
	list := m.waitlists[courseID]
	for i, id := range list {
		if id == studentID {
			m.waitlists[courseID] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}
