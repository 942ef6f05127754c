package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/security"
)

func testRouter(secret []byte, log *logging.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), Metrics())
	r.GET("/me", Authentication(secret), func(c *gin.Context) {
		id, ok := CallerID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "requestId": logging.RequestIDFromContext(c.Request.Context())})
	})
	return r
}

func TestAuthentication(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	log := logging.NewTestLogger()
	r := testRouter(secret, log.Logger)

	token, err := security.SignIdentityToken(&security.HrmsIdentity{Id: 7, UserName: "jane", Role: "agent"}, secret, time.Hour)
	require.NoError(t, err)
	expired, err := security.SignIdentityToken(&security.HrmsIdentity{Id: 7}, secret, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, http.StatusUnauthorized},
		{"other secret", func(r *http.Request) {
			other, _ := security.SignIdentityToken(&security.HrmsIdentity{Id: 7}, []byte("another-secret"), time.Hour)
			r.Header.Set("Authorization", "Bearer "+other)
		}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"ok":true,"requestId":"`+w.Header().Get(RequestIDHeader)+`"}`, w.Body.String())
			}
		})
	}
	log.AssertLogged(t, zapcore.WarnLevel, "request rejected")
}

func TestRequestIDIsKept(t *testing.T) {
	r := testRouter([]byte("secret"), logging.Nop())
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
