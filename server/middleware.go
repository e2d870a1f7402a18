package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fortune/models"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Headers set by the authentication collaborator in front of this service
const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
	HeaderRole      = "X-Role"
)

type contextKey string

const identityKey contextKey = "identity"

// identityMiddleware reads the caller identity established upstream
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := models.Identity{
			UserID:    strings.TrimSpace(r.Header.Get(HeaderUserID)),
			SessionID: strings.TrimSpace(r.Header.Get(HeaderSessionID)),
			Role:      parseRole(r.Header.Get(HeaderRole)),
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseRole(raw string) models.Role {
	switch role := models.Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case models.RoleAdmin, models.RoleOrganizer:
		return role
	default:
		return models.RoleCustomer
	}
}

func identityFrom(ctx context.Context) models.Identity {
	identity, _ := ctx.Value(identityKey).(models.Identity)
	return identity
}

// requestLogger writes one structured access log line per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			entry := log.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestID":  chimiddleware.GetReqID(r.Context()),
				"remoteAddr": r.RemoteAddr,
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}
