package middleware

import (
	"bytes"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func multipartTokenRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("token", token))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		request    func(t *testing.T) *http.Request
		expected   int
	}{
		{
			name:       "bearer token",
			configured: "s3cret",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/api/admin/index", nil)
				req.Header.Set("Authorization", "Bearer s3cret")
				return req
			},
			expected: http.StatusOK,
		},
		{
			name:       "header token",
			configured: "s3cret",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/api/admin/index", nil)
				req.Header.Set("X-Admin-Token", "s3cret")
				return req
			},
			expected: http.StatusOK,
		},
		{
			name:       "form token",
			configured: "s3cret",
			request:    func(t *testing.T) *http.Request { return multipartTokenRequest(t, "s3cret") },
			expected:   http.StatusOK,
		},
		{
			name:       "wrong token",
			configured: "s3cret",
			request:    func(t *testing.T) *http.Request { return multipartTokenRequest(t, "guess") },
			expected:   http.StatusUnauthorized,
		},
		{
			name:       "missing token",
			configured: "s3cret",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/admin/index", nil)
			},
			expected: http.StatusUnauthorized,
		},
		{
			name:       "no configured token rejects everything",
			configured: "",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/api/admin/index", nil)
				req.Header.Set("Authorization", "Bearer ")
				return req
			},
			expected: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			AdminAuth(tt.configured)(okHandler()).ServeHTTP(w, tt.request(t))

			assert.Equal(t, tt.expected, w.Code)
			if tt.expected == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestMaxBodyBytes(t *testing.T) {
	handler := MaxBodyBytes(2 << 20)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(strings.Repeat("x", 3<<20)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "max 2 MB")

	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{}"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.NotEqual(t, "bad id\nwith newline", seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestAccessLog_MarksAdminRequests(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	handler := AccessLog(AdminAuth("s3cret")(okHandler()))
	req := httptest.NewRequest(http.MethodGet, "/api/admin/index", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"path":"/api/admin/index"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"admin":true`)
}

func TestAccessLog_SkipsHealthyProbes(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	AccessLog(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	AccessLog(failing).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, buf.String(), `"status":503`)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	assert.Equal(t, "10.0.0.9", clientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
