package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Content-Security-Policy", "default-src 'self'"},
	}

	for _, tt := range tests {
		if got := rr.Header().Get(tt.header); got != tt.expected {
			t.Errorf("SecurityHeaders() %s = %q, want %q", tt.header, got, tt.expected)
		}
	}
}

func TestSecurityHeaders_CORS(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	tests := []struct {
		name       string
		origin     string
		expectCORS bool
	}{
		{name: "vite dev server allowed", origin: "http://localhost:5173", expectCORS: true},
		{name: "localhost without port allowed", origin: "http://localhost", expectCORS: true},
		{name: "loopback service port allowed", origin: "http://127.0.0.1:8080", expectCORS: true},
		{name: "external origin blocked", origin: "http://evil.com", expectCORS: false},
		{name: "evil-localhost.com bypass attempt blocked", origin: "http://evil-localhost.com", expectCORS: false},
		{name: "localhost subdomain bypass attempt blocked", origin: "http://localhost.evil.com", expectCORS: false},
		{name: "unknown localhost port blocked", origin: "http://localhost:9999", expectCORS: false},
		{name: "no origin header", origin: "", expectCORS: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			cors := rr.Header().Get("Access-Control-Allow-Origin")
			if tt.expectCORS {
				if cors != tt.origin {
					t.Errorf("Expected CORS origin %q, got %q", tt.origin, cors)
				}
			} else if cors != "" {
				t.Errorf("Expected no CORS header, got %q", cors)
			}
		})
	}
}

func TestSecurityHeaders_Preflight(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run for preflight")
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/recommend", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Preflight status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Allow-Methods = %q, want POST included", got)
	}
}

func TestMaxBodySize(t *testing.T) {
	handler := MaxBodySize(100)(okHandler())

	small := httptest.NewRequest("POST", "/test", bytes.NewReader(make([]byte, 50)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, small)
	if rr.Code != http.StatusOK {
		t.Errorf("Small body status = %d, want %d", rr.Code, http.StatusOK)
	}

	large := httptest.NewRequest("POST", "/test", bytes.NewReader(make([]byte, 200)))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, large)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Large body status = %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestTokenAuth(t *testing.T) {
	auth := NewTokenAuth("secret-token")
	handler := auth.Middleware(okHandler())

	// Missing token rejected
	req := httptest.NewRequest("POST", "/api/v1/recommend", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Missing token status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	// Wrong token rejected
	req = httptest.NewRequest("POST", "/api/v1/recommend", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Wrong token status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	// Correct bearer token accepted
	req = httptest.NewRequest("POST", "/api/v1/recommend", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Valid token status = %d, want %d", rr.Code, http.StatusOK)
	}

	// Health stays exempt
	req = httptest.NewRequest("GET", "/api/health", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Exempt path status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestTokenAuth_Disabled(t *testing.T) {
	auth := NewTokenAuth("")
	if auth.Enabled() {
		t.Error("Empty token should disable auth")
	}

	handler := auth.Middleware(okHandler())
	req := httptest.NewRequest("POST", "/api/v1/recommend", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Disabled auth status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Generated when absent
	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen == "" {
		t.Error("Expected generated request ID in context")
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("Response header ID = %q, context ID = %q", got, seen)
	}

	// Client-supplied ID preserved
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != "client-id-1" {
		t.Errorf("Context ID = %q, want client-id-1", seen)
	}
}

func TestRequireJSONContentType(t *testing.T) {
	handler := RequireJSONContentType(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"POST json allowed", "POST", "application/json", http.StatusOK},
		{"POST json with charset allowed", "POST", "application/json; charset=utf-8", http.StatusOK},
		{"POST text rejected", "POST", "text/plain", http.StatusUnsupportedMediaType},
		{"PUT xml rejected", "PUT", "application/xml", http.StatusUnsupportedMediaType},
		{"POST empty allowed", "POST", "", http.StatusOK},
		{"GET ignored", "GET", "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestInstrument_PassesResponseThrough(t *testing.T) {
	s := &Service{metrics: newMetrics()}

	// instrument reads the chi route pattern, so it must run inside a
	// router as it does in production.
	router := chi.NewRouter()
	router.Use(s.instrument)
	router.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	req := httptest.NewRequest("GET", "/teapot", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("Wrapped status = %d, want %d", rr.Code, http.StatusTeapot)
	}
	if got := rr.Body.String(); got != "short and stout" {
		t.Errorf("Wrapped body = %q, want %q", got, "short and stout")
	}
}
