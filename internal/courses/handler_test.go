package courses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

type memCourses struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Course
}

func newMemCourses() *memCourses { return &memCourses{byID: map[uuid.UUID]*models.Course{}} }

func (m *memCourses) Create(_ context.Context, c *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCourses) GetByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCourses) List(_ context.Context, f ListFilter) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Course
	for _, c := range m.byID {
		if f.ActiveOnly && !c.IsActive {
			continue
		}
		if f.InstructorID != nil && c.InstructorID != *f.InstructorID {
			continue
		}
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	return list, nil
}

func (m *memCourses) Update(_ context.Context, id uuid.UUID, u Update) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrCourseNotFound
	}
	if u.MaxParticipants != nil && *u.MaxParticipants < c.EnrolledCount {
		return nil, ErrCapacityBelowEnrolled
	}
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.FeeCents != nil {
		c.FeeCents = *u.FeeCents
	}
	if u.MaxParticipants != nil {
		c.MaxParticipants = *u.MaxParticipants
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	cp := *c
	return &cp, nil
}

type caller struct {
	id   uuid.UUID
	role models.Role
}

func newCourseRouter(store Store, who *caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, "USD", nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, who.id)
		c.Set(middleware.ContextUserRole, string(who.role))
	})
	r.GET("/course", h.List)
	r.GET("/course/:id", h.Get)
	r.POST("/course", h.Create)
	r.PATCH("/course/:id", h.Update)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetCourse(t *testing.T) {
	store := newMemCourses()
	instructor := &caller{id: uuid.New(), role: models.RoleInstructor}
	r := newCourseRouter(store, instructor)

	rec := do(r, http.MethodPost, "/course", gin.H{"title": "Go 101", "fee_cents": 5000, "max_participants": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data CourseView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, instructor.id, created.Data.InstructorID)
	assert.Equal(t, "usd", created.Data.Currency)
	assert.Equal(t, 2, created.Data.SeatsLeft)
	assert.True(t, created.Data.IsActive)

	rec = do(r, http.MethodGet, "/course/"+created.Data.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/course/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodPost, "/course", gin.H{"title": "Bad", "max_participants": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHidesInactiveFromStudents(t *testing.T) {
	store := newMemCourses()
	instructor := uuid.New()
	require.NoError(t, store.Create(context.Background(), &models.Course{Title: "A", InstructorID: instructor, MaxParticipants: 1, IsActive: true}))
	require.NoError(t, store.Create(context.Background(), &models.Course{Title: "B", InstructorID: instructor, MaxParticipants: 1, IsActive: false}))

	student := &caller{id: uuid.New(), role: models.RoleStudent}
	r := newCourseRouter(store, student)
	rec := do(r, http.MethodGet, "/course?all=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []CourseView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "A", body.Data[0].Title)

	admin := &caller{id: uuid.New(), role: models.RoleAdmin}
	r = newCourseRouter(store, admin)
	rec = do(r, http.MethodGet, "/course?all=1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestUpdateCourse(t *testing.T) {
	store := newMemCourses()
	owner := uuid.New()
	course := &models.Course{Title: "Go", InstructorID: owner, MaxParticipants: 3, EnrolledCount: 2, IsActive: true}
	require.NoError(t, store.Create(context.Background(), course))
	path := "/course/" + course.ID.String()

	tests := []struct {
		name     string
		who      *caller
		body     gin.H
		wantCode int
	}{
		{"other instructor forbidden", &caller{id: uuid.New(), role: models.RoleInstructor}, gin.H{"fee_cents": 1}, http.StatusForbidden},
		{"below enrolled rejected", &caller{id: owner, role: models.RoleInstructor}, gin.H{"max_participants": 1}, http.StatusBadRequest},
		{"owner raises capacity", &caller{id: owner, role: models.RoleInstructor}, gin.H{"max_participants": 5}, http.StatusOK},
		{"admin deactivates", &caller{id: uuid.New(), role: models.RoleAdmin}, gin.H{"is_active": false}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newCourseRouter(store, tt.who), http.MethodPatch, path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	got, err := store.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.MaxParticipants)
	assert.False(t, got.IsActive)
}
