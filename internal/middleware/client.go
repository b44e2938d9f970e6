package middleware

import (
	"context"
	"net/http"
	"strings"

	"decostore-rest-api/pkg/apierror"
)

// ClientIDKey is the context key for the storefront client id.
const ClientIDKey contextKey = "client_id"

const maxClientIDLen = 128

// RequireClientID rejects requests without an X-Client-ID header and stores
// the id in the request context.
func RequireClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := strings.TrimSpace(r.Header.Get("X-Client-ID"))
		if clientID == "" {
			writeError(w, apierror.BadRequest("X-Client-ID header is required"))
			return
		}
		if len(clientID) > maxClientIDLen {
			writeError(w, apierror.BadRequest("X-Client-ID header is too long"))
			return
		}

		ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientID retrieves the client id from context.
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(ClientIDKey).(string); ok {
		return id
	}
	return ""
}
