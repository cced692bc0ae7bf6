package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	AgencyKey contextKey = "agency"
	ActorKey  contextKey = "actor"
)

// ActorHeader names the user acting on behalf of the agency.
const ActorHeader = "X-User-ID"

// APIKeyAuth validates the API key from the Authorization header and stores
// the agency it belongs to. keys maps API key -> agency id. An empty map
// disables authentication.
func APIKeyAuth(keys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
				ctx = context.WithValue(ctx, ActorKey, SanitizeString(actor))
			}
			if len(keys) == 0 {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}
			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			var agency string
			for key, a := range keys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					agency = a
					break
				}
			}
			if agency == "" {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, AgencyKey, agency)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgencyFromContext returns the authenticated agency, if any.
func AgencyFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(AgencyKey).(string); ok {
		return a
	}
	return ""
}

func ActorFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(ActorKey).(string); ok {
		return a
	}
	return ""
}

// RequireAgency checks the {agency} URL parameter: it must be well formed
// and, when the request is authenticated, equal to the key's agency.
func RequireAgency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlAgency := chi.URLParam(r, "agency")
		if err := ValidateAgencyID(urlAgency); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if auth := AgencyFromContext(r.Context()); auth != "" && auth != urlAgency {
			http.Error(w, "agency not permitted for this API key", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), AgencyKey, urlAgency)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
