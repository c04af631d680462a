// Package trace stamps every request with an id, logs its completion and
// reports its outcome to an observer.
package trace

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	applog "finhealth/internal/log"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

// HeaderRequestID is echoed back on every response. An incoming value is
// kept when it looks like an id we could have issued.
const HeaderRequestID = "X-Request-ID"

// Observer receives the outcome of each request. route is the pattern
// recorded by Route, or "unmatched".
type Observer func(method, route string, status int, d time.Duration)

type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.StructuredLogger
	observe   Observer
	now       func() time.Time
}

func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string, observe Observer) *Middleware {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
		observe:   observe,
		now:       time.Now,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		matched := &routeInfo{}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, routeKey{}, matched)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		d := m.now().Sub(start)
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, d.Milliseconds(), clientIP)
		if m.observe != nil {
			route := matched.route
			if route == "" {
				route = "unmatched"
			}
			m.observe(r.Method, route, rw.statusCode, d)
		}
	})
}

type routeKey struct{}

type routeInfo struct {
	route string
}

// Route records the mux pattern that matched the request. Wrap each handler
// registered on the mux with it; the method prefix of the pattern is dropped.
func Route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := r.Context().Value(routeKey{}).(*routeInfo); ok {
			p := r.Pattern
			if i := strings.IndexByte(p, ' '); i >= 0 {
				p = p[i+1:]
			}
			info.route = p
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

func validRequestID(id string) bool {
	if len(id) < 5 || id[:4] != "req_" {
		return false
	}
	_, err := uuid.Parse(id[4:])
	return err == nil
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestID reads the id for applog.RequestIDMiddleware.
func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}
