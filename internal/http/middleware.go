package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/LarinhaPrates/canteen-orders/internal/identity"
)

// TokenVerifier is the authentication collaborator. It turns a bearer token
// into the authenticated buyer plus the metadata the auth provider attached
// at sign-up.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.Buyer, error)
}

// AuthMiddleware resolves the bearer token and stores the buyer on the
// request context. Requests without a valid token never reach a handler.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			buyer, err := verifier.Verify(r.Context(), token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), buyerContextKey, buyer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const (
	buyerContextKey     contextKey = "buyer"
	requestIDContextKey contextKey = "request_id"
)

func buyerFromContext(ctx context.Context) (identity.Buyer, bool) {
	buyer, ok := ctx.Value(buyerContextKey).(identity.Buyer)
	return buyer, ok
}
