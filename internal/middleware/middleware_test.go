package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gator-overflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func echoUID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := GetUIDFromContext(r.Context())
		w.Write([]byte(uid))
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthenticator("test-secret", "gator-overflow", zap.NewNop())
	token, err := auth.GenerateToken("uid-1", "alice@example.com")
	require.NoError(t, err)

	other := NewAuthenticator("other-secret", "gator-overflow", zap.NewNop())
	forged, err := other.GenerateToken("uid-1", "alice@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"reads pass without token", http.MethodGet, "", http.StatusOK, ""},
		{"mutation without token", http.MethodPost, "", http.StatusUnauthorized, ""},
		{"malformed header", http.MethodPost, "Token " + token, http.StatusUnauthorized, ""},
		{"wrong signing key", http.MethodPatch, "Bearer " + forged, http.StatusUnauthorized, ""},
		{"valid token", http.MethodDelete, "Bearer " + token, http.StatusOK, "uid-1"},
	}

	handler := auth.AuthMiddleware(echoUID())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareDisabledWithoutSecret(t *testing.T) {
	handler := NewAuthenticator("", "", nil).AuthMiddleware(echoUID())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSMiddlewareAnswersPreflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	handler := CORSMiddleware(DefaultCORSConfig([]string{"http://localhost:5173"}))(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	// Unknown origins get no CORS headers
	req = httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.True(t, called)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerCountsServerErrors(t *testing.T) {
	metrics := utils.NewMetricsCollector()
	status := http.StatusOK
	handler := RequestLogger(zap.NewNop(), metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	status = http.StatusInternalServerError
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tags", nil))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "gator_overflow_http_requests_total 2")
	assert.Contains(t, rr.Body.String(), "gator_overflow_http_errors_total 1")
}
