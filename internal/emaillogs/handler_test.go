package emaillogs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

type fakeLister struct {
	got Filter
	err error
}

func (f *fakeLister) List(_ context.Context, filter Filter) ([]*models.EmailLog, error) {
	f.got = filter
	return []*models.EmailLog{}, f.err
}

func TestListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	enrollmentID := uuid.New()

	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
		check    func(t *testing.T, f Filter)
	}{
		{
			name:     "by enrollment and status",
			query:    "?enrollment_id=" + enrollmentID.String() + "&status=failed&limit=10",
			wantCode: http.StatusOK,
			check: func(t *testing.T, f Filter) {
				if assert.NotNil(t, f.EnrollmentID) {
					assert.Equal(t, enrollmentID, *f.EnrollmentID)
				}
				assert.Nil(t, f.PaymentID)
				assert.Equal(t, "failed", f.Status)
				assert.Equal(t, 10, f.Limit)
			},
		},
		{name: "bad enrollment id", query: "?enrollment_id=x", wantCode: http.StatusBadRequest},
		{name: "bad status", query: "?status=bounced", wantCode: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-1", wantCode: http.StatusBadRequest},
		{name: "store error", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{err: tt.err}
			r := gin.New()
			r.GET("/admin/emails", NewHandler(lister).List)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/emails"+tt.query, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.check != nil {
				tt.check(t, lister.got)
			}
		})
	}
}
