package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/cardimport/internal/core"
)

// withImportMetadata tags ctx with the uploaded file name so import logs
// name their source. The client IP is already set by TrustedRealIP.
func withImportMetadata(r *http.Request, filename string) context.Context {
	ctx := r.Context()
	if core.ClientIPFromContext(ctx) == "" {
		ctx = core.ContextWithClientIP(ctx, r.RemoteAddr)
	}
	return core.ContextWithSource(ctx, filename)
}
