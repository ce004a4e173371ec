package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/go-chi/render"
)

// authError mirrors the error body the API handlers return.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// APIKeyAuth guards the import API with the configured keys. A key is read
// from X-API-Key or an "Authorization: Bearer" header. With RequireAPIKey
// off every request passes; with it on and no keys configured, none do.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r)
			switch {
			case key == "":
				reject(w, r, http.StatusUnauthorized, "AUTH001", "missing API key")
			case !isValidAPIKey(key, cfg.APIKeys):
				reject(w, r, http.StatusForbidden, "AUTH002", "invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	const bearer = "bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(bearer) && strings.EqualFold(h[:len(bearer)], bearer) {
		return strings.TrimSpace(h[len(bearer):])
	}
	return ""
}

func reject(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	ip := core.ClientIPFromContext(r.Context())
	if ip == "" {
		ip = r.RemoteAddr
	}
	logging.FromContext(r.Context()).Warn("auth: "+msg,
		"method", r.Method,
		"path", r.URL.Path,
		"ip", ip,
		"code", code,
	)
	render.Status(r, status)
	render.JSON(w, r, authError{
		Error:   msg,
		Message: "Provide a valid API key in the X-API-Key header",
		Code:    code,
	})
}

// isValidAPIKey compares key against every configured key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
