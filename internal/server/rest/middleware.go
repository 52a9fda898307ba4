package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/auth"
	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
)

type ctxKey string

const claimsKey ctxKey = "claims"

const requestIDHeader = "X-Request-ID"

var jsonMediaType = contenttype.NewMediaType("application/json")

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// requireAuth admits requests carrying a valid bearer token and stores its
// claims in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
		if !strings.HasPrefix(header, common.BearerPrefix) || token == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := s.users.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrTokenRevoked) {
				writeError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			s.logger.Error(r.Context(), "authenticate", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// requireJSON rejects request bodies that are not application/json.
func (s *Server) requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			ctype, err := contenttype.GetMediaType(r)
			if err != nil || !ctype.Matches(jsonMediaType) {
				writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info(r.Context(), "http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
