package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vighneshparab/SkyWings-sub000/internal/auth"
	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

func newRouter(jwtSvc *auth.JWTService, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(logger))
	api := r.Group("", JWT(jwtSvc))
	api.GET("/me", func(c *gin.Context) {
		id, role, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	api.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestJWTAndRequireRole(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", 1)
	r := newRouter(jwtSvc, zap.NewNop())

	student, err := jwtSvc.Generate(uuid.New(), "s@example.com", string(models.RoleStudent))
	require.NoError(t, err)
	admin, err := jwtSvc.Generate(uuid.New(), "a@example.com", string(models.RoleAdmin))
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
	}{
		{name: "missing header", path: "/me", wantCode: http.StatusUnauthorized},
		{name: "not bearer", path: "/me", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "bad token", path: "/me", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "student ok", path: "/me", header: "Bearer " + student, wantCode: http.StatusOK},
		{name: "student forbidden on admin", path: "/admin", header: "Bearer " + student, wantCode: http.StatusForbidden},
		{name: "admin ok", path: "/admin", header: "Bearer " + admin, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestLoggerSetsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(auth.NewJWTService("secret", 1), zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusUnauthorized, entry.ContextMap()["status"])
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		allowed    string
		origin     string
		method     string
		wantOrigin string
		wantCode   int
	}{
		{"wildcard", "*", "http://any.test", http.MethodGet, "*", http.StatusOK},
		{"listed origin", "http://a.test, http://b.test", "http://b.test", http.MethodGet, "http://b.test", http.StatusOK},
		{"unlisted origin", "http://a.test", "http://evil.test", http.MethodGet, "", http.StatusOK},
		{"preflight", "http://a.test", "http://a.test", http.MethodOptions, "http://a.test", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.allowed))
			r.GET("/course", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/course", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderRequestID)
			}
		})
	}
}
