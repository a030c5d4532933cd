package reports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vighneshparab/SkyWings-sub000/internal/courses"
	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

type fakeReader struct {
	roster  map[uuid.UUID]*Roster
	mine    map[uuid.UUID][]StudentEnrollment
	filter  EnrollmentFilter
	summary []CourseSummary
	err     error
}

func (f *fakeReader) StudentEnrollments(_ context.Context, studentID uuid.UUID) ([]StudentEnrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.mine[studentID], nil
}

func (f *fakeReader) Roster(_ context.Context, courseID uuid.UUID) (*Roster, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.roster[courseID]
	if !ok {
		return nil, courses.ErrCourseNotFound
	}
	return r, nil
}

func (f *fakeReader) Enrollments(_ context.Context, filter EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	f.filter = filter
	return []models.EnrollmentDetail{}, f.err
}

func (f *fakeReader) CourseSummaries(context.Context) ([]CourseSummary, error) {
	return f.summary, f.err
}

func router(reader Reader, userID uuid.UUID, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(reader, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.ContextUserID, userID)
			c.Set(middleware.ContextUserRole, string(role))
		}
		c.Next()
	})
	r.GET("/me/enrollments", h.MyEnrollments)
	r.GET("/course/:id/roster", h.Roster)
	r.GET("/admin/enrollments", h.Enrollments)
	r.GET("/admin/courses/summary", h.CourseSummaries)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMyEnrollments(t *testing.T) {
	ana := uuid.New()
	reader := &fakeReader{mine: map[uuid.UUID][]StudentEnrollment{
		ana: {{
			Enrollment:       models.Enrollment{ID: uuid.New(), StudentID: ana, Status: models.EnrollmentStatusWaitlisted},
			CourseTitle:      "Flight Basics",
			WaitlistPosition: 2,
		}},
	}}

	w := get(router(reader, ana, models.RoleStudent), "/me/enrollments")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []StudentEnrollment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Flight Basics", body.Data[0].CourseTitle)
	assert.Equal(t, 2, body.Data[0].WaitlistPosition)

	assert.Equal(t, http.StatusUnauthorized, get(router(reader, uuid.Nil, ""), "/me/enrollments").Code)
}

func TestRosterAccess(t *testing.T) {
	instructor, other, admin := uuid.New(), uuid.New(), uuid.New()
	courseID := uuid.New()
	reader := &fakeReader{roster: map[uuid.UUID]*Roster{
		courseID: {
			Course:   models.Course{ID: courseID, InstructorID: instructor},
			Enrolled: []RosterStudent{{StudentID: uuid.New(), FullName: "Ana"}},
			Waitlist: []RosterStudent{{StudentID: uuid.New(), FullName: "Ben", Position: 1}},
		},
	}}

	tests := []struct {
		name     string
		userID   uuid.UUID
		role     models.Role
		path     string
		wantCode int
	}{
		{"course instructor", instructor, models.RoleInstructor, "/course/" + courseID.String() + "/roster", http.StatusOK},
		{"admin", admin, models.RoleAdmin, "/course/" + courseID.String() + "/roster", http.StatusOK},
		{"other instructor", other, models.RoleInstructor, "/course/" + courseID.String() + "/roster", http.StatusForbidden},
		{"unknown course", admin, models.RoleAdmin, "/course/" + uuid.NewString() + "/roster", http.StatusNotFound},
		{"bad id", admin, models.RoleAdmin, "/course/nope/roster", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router(reader, tt.userID, tt.role), tt.path)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode == http.StatusOK {
				var body struct {
					Data Roster `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Len(t, body.Data.Enrolled, 1)
				require.Len(t, body.Data.Waitlist, 1)
				assert.Equal(t, 1, body.Data.Waitlist[0].Position)
			}
		})
	}
}

func TestAdminEnrollmentsFilter(t *testing.T) {
	admin := uuid.New()
	courseID := uuid.New()

	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
		check    func(t *testing.T, f EnrollmentFilter)
	}{
		{
			name:     "status and course",
			query:    "?status=waitlisted&course_id=" + courseID.String() + "&limit=5",
			wantCode: http.StatusOK,
			check: func(t *testing.T, f EnrollmentFilter) {
				assert.Equal(t, models.EnrollmentStatusWaitlisted, f.Status)
				if assert.NotNil(t, f.CourseID) {
					assert.Equal(t, courseID, *f.CourseID)
				}
				assert.Equal(t, 5, f.Limit)
			},
		},
		{name: "bad status", query: "?status=dropped", wantCode: http.StatusBadRequest},
		{name: "bad course", query: "?course_id=x", wantCode: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=0", wantCode: http.StatusBadRequest},
		{name: "store error", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{err: tt.err}
			w := get(router(reader, admin, models.RoleAdmin), "/admin/enrollments"+tt.query)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.check != nil {
				tt.check(t, reader.filter)
			}
		})
	}
}

func TestCourseSummaries(t *testing.T) {
	reader := &fakeReader{summary: []CourseSummary{{Title: "Flight Basics", MaxParticipants: 2, EnrolledCount: 2, Waitlisted: 3, RevenueCents: 20000}}}
	w := get(router(reader, uuid.New(), models.RoleAdmin), "/admin/courses/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"revenue_cents":20000`)
	assert.Contains(t, w.Body.String(), `"waitlisted":3`)

	reader.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(router(reader, uuid.New(), models.RoleAdmin), "/admin/courses/summary").Code)
}
