package handlers

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/handlers/response"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

const RequestIDHeader = "X-Request-ID"

type contextKey int

const (
	requestIDKey contextKey = iota
	authPayloadKey
)

type MiddlewareProvider struct {
	jwtService primary.JWTService
	logger     primary.Logger
}

// New returns a provider. A nil jwtService turns JWTMiddleware into a no-op.
func New(jwtService primary.JWTService, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		jwtService: jwtService,
		logger:     logger,
	}
}

// AuthEnabled reports whether bearer tokens are checked
func (m *MiddlewareProvider) AuthEnabled() bool {
	return m.jwtService != nil
}

// JWTMiddleware requires a token granting the run permission. Browsers cannot
// set headers on a websocket upgrade, so ?token= is accepted as well.
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	if m.jwtService == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			response.WriteServiceError(w, errs.ErrMissingToken)
			return
		}

		payload, err := m.jwtService.VerifyTokenHMAC(r.Context(), tokenString)
		if err != nil {
			m.logger.Warn("Rejected token", "requestId", RequestID(r.Context()), "error", err)
			response.WriteServiceError(w, errs.ErrInvalidToken)
			return
		}
		if !payload.Can(domain.PermissionRun) {
			response.WriteServiceError(w, errs.ErrPermission)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authPayloadKey, payload)))
	})
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Extract token from "Bearer <token>"
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one
func (m *MiddlewareProvider) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (m *MiddlewareProvider) AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.logger.Info("HTTP request",
			"requestId", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func AuthPayload(ctx context.Context) (domain.AuthPayload, bool) {
	payload, ok := ctx.Value(authPayloadKey).(domain.AuthPayload)
	return payload, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the access log
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
