package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureClientIP(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = core.ClientIPFromContext(r.Context())
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "untrusted proxy headers are ignored",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.9:5555",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			want:       "198.51.100.7",
		},
		{
			name:       "trusted proxy X-Forwarded-For takes first hop",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:9999",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.8, 10.0.0.1"},
			want:       "198.51.100.8",
		},
		{
			name:       "invalid header value keeps remote",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:80",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(captureClientIP(&got))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("client IP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	required := config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}

	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		header   string
		value    string
		status   int
		wantCode string
	}{
		{"disabled", config.SecurityConfig{}, "", "", http.StatusNoContent, ""},
		{"missing key", required, "", "", http.StatusUnauthorized, "AUTH001"},
		{"wrong key", required, "X-API-Key", "nope", http.StatusForbidden, "AUTH002"},
		{"second key", required, "X-API-Key", "k2", http.StatusNoContent, ""},
		{"bearer token", required, "Authorization", "Bearer k1", http.StatusNoContent, ""},
		{"bearer lowercase", required, "Authorization", "bearer k2", http.StatusNoContent, ""},
		{"basic scheme ignored", required, "Authorization", "Basic k1", http.StatusUnauthorized, "AUTH001"},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "X-API-Key", "k1", http.StatusForbidden, "AUTH002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			APIKeyAuth(&cfg)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)

			if tt.wantCode != "" {
				var body authError
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body.Code)
				assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			}
		})
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeObserver struct{ calls []recordedRequest }

func (f *fakeObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recordedRequest{method, route, status})
}

func TestLogger_ReportsRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Logger(obs))
	r.Get("/api/decks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/decks/42", nil))

	if assert.Len(t, obs.calls, 1) {
		assert.Equal(t, recordedRequest{"GET", "/api/decks/{id}", http.StatusTeapot}, obs.calls[0])
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}
	ww.WriteHeader(http.StatusCreated)
	ww.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusCreated, ww.status)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
