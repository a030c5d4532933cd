package enrollment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vighneshparab/SkyWings-sub000/internal/middleware"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newEnrollRouter(f *fixture, who *Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, who.ID)
		c.Set(middleware.ContextUserRole, string(who.Role))
	})
	r.POST("/course/:id/enroll", h.Enroll)
	r.POST("/course/payment-success", h.PaymentSuccess)
	return r
}

func post(t *testing.T, r *gin.Engine, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestEnrollEndpoint(t *testing.T) {
	f := newFixture(t, 1)
	ana, ben := f.student("ana"), f.student("ben")
	anaActor, benActor := actor(ana), actor(ben)
	enrollPath := "/course/" + f.course.ID.String() + "/enroll"

	code, env := post(t, newEnrollRouter(f, &anaActor), enrollPath, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var checkout struct {
		Message      string    `json:"message"`
		URL          string    `json:"url"`
		EnrollmentID uuid.UUID `json:"enrollment_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.Equal(t, "https://checkout.test/cs_test_1", checkout.URL)
	assert.NotEqual(t, uuid.Nil, checkout.EnrollmentID)

	code, env = post(t, newEnrollRouter(f, &anaActor), enrollPath, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, ErrAlreadyEnrolled.Error(), env.Error)

	code, env = post(t, newEnrollRouter(f, &anaActor), "/course/payment-success", gin.H{"session_id": "cs_test_1"})
	assert.Equal(t, http.StatusBadRequest, code, "unpaid session")
	assert.Equal(t, ErrPaymentNotSuccessful.Error(), env.Error)

	f.gw.pay("cs_test_1")
	code, env = post(t, newEnrollRouter(f, &benActor), "/course/payment-success", gin.H{"session_id": "cs_test_1"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = post(t, newEnrollRouter(f, &anaActor), "/course/payment-success", gin.H{"session_id": "cs_test_1"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var done struct {
		Message     string         `json:"message"`
		InvoiceData models.Invoice `json:"invoiceData"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, "Payment successful. You are enrolled.", done.Message)
	assert.Equal(t, models.EnrollmentStatusActive, done.InvoiceData.EnrollmentStatus)

	code, env = post(t, newEnrollRouter(f, &anaActor), "/course/payment-success", gin.H{"session_id": "cs_test_1"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, "Payment already processed.", done.Message)

	code, env = post(t, newEnrollRouter(f, &benActor), enrollPath, nil)
	require.Equal(t, http.StatusOK, code)
	var waitlisted struct {
		Message  string `json:"message"`
		Position int    `json:"position"`
		URL      string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &waitlisted))
	assert.Equal(t, 1, waitlisted.Position)
	assert.Empty(t, waitlisted.URL)
}

func TestEnrollEndpointErrors(t *testing.T) {
	f := newFixture(t, 1)
	ana := f.student("ana")
	anaActor := actor(ana)

	tests := []struct {
		name      string
		path      string
		body      any
		createErr error
		wantCode  int
	}{
		{name: "bad course id", path: "/course/nope/enroll", wantCode: http.StatusBadRequest},
		{name: "unknown course", path: "/course/" + uuid.NewString() + "/enroll", wantCode: http.StatusNotFound},
		{name: "gateway down", path: "/course/" + f.course.ID.String() + "/enroll", createErr: fmt.Errorf("x: %w", payments.ErrGatewayUnavailable), wantCode: http.StatusServiceUnavailable},
		{name: "missing session id", path: "/course/payment-success", body: gin.H{}, wantCode: http.StatusBadRequest},
		{name: "unknown session", path: "/course/payment-success", body: gin.H{"session_id": "cs_nope"}, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.gw.createErr = tt.createErr
			code, env := post(t, newEnrollRouter(f, &anaActor), tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrAlreadyEnrolled, http.StatusBadRequest},
		{ErrCourseInactive, http.StatusBadRequest},
		{ErrPaymentNotSuccessful, http.StatusBadRequest},
		{ErrCourseNotFound, http.StatusNotFound},
		{ErrPaymentRecordNotFound, http.StatusNotFound},
		{ErrPaymentForbidden, http.StatusForbidden},
		{fmt.Errorf("open checkout: %w", payments.ErrGatewayUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("verify: %w", payments.ErrGatewayRejected), http.StatusBadGateway},
		{ErrEnrollmentNotFound, http.StatusInternalServerError},
		{ErrStudentNotFound, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
