package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = contextKey("requestID")

	staffIDHeader    = "X-Staff-ID"
	staffRolesHeader = "X-Staff-Roles"
	callerKey        = contextKey("caller")
)

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With(
			slog.String("request_id", getRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		)
		log.Info("request started")

		t1 := time.Now()

		next.ServeHTTP(w, r)

		log.Info("request completed",
			slog.String("duration", time.Since(t1).String()),
		)
	})
}

// callerIdentity resolves the gateway-provided staff headers into an explicit
// identity.Caller. The capability check itself happens at the service
// boundary; an absent header simply yields a caller with no roles.
func (s *Server) callerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := identity.Caller{ID: r.Header.Get(staffIDHeader)}

		for _, role := range strings.Split(r.Header.Get(staffRolesHeader), ",") {
			if role = strings.TrimSpace(role); role != "" {
				caller.Roles = append(caller.Roles, identity.Role(role))
			}
		}

		ctx := context.WithValue(r.Context(), callerKey, caller)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}

	return ""
}

func callerFromContext(ctx context.Context) identity.Caller {
	if caller, ok := ctx.Value(callerKey).(identity.Caller); ok {
		return caller
	}

	return identity.Caller{}
}
