package httpapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
)

type contextKey string

const viewerKey contextKey = "viewer"

// viewerID returns the authenticated user id, or AnonymousViewer when
// the request carried no (valid) token.
func viewerID(r *http.Request) int64 {
	if id, ok := r.Context().Value(viewerKey).(int64); ok {
		return id
	}
	return socialgraph.AnonymousViewer
}

func tokenFrom(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// withAuth resolves the bearer token when present. Reads accept
// anonymous viewers, so an absent or invalid token just leaves the
// request anonymous.
func withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFrom(r); token != "" {
			if claims, err := common.ValidToken(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), viewerKey, claims.UserID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth gates mutation endpoints on a valid token.
func requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFrom(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authorization required"})
			return
		}
		claims, err := common.ValidToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), viewerKey, claims.UserID))
		next(w, r)
	}
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}
