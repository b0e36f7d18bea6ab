package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/vzdr/docuquery-rag/internal/ratelimit"
	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// logging, grounded on bbiangul-go-reason/cmd/server/middleware.go.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// logMiddleware logs method, path, status, and duration for every request.
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rw.status, time.Since(start).Round(time.Millisecond))
	})
}

// recoveryMiddleware catches panics, logs the stack trace, and returns the
// §6 error envelope with code INTERNAL_SERVER_ERROR.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("ragserver: panic recovered on %s: %v\n%s", r.URL.Path, rec, debug.Stack())
				writeError(w, ragerr.New(ragerr.KindInternal, ragerr.CodeInternalError, "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware implements the §6 CORS surface from the comma-separated
// CORS_ORIGIN variable.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware enforces the §4.H multi-policy chain ahead of every
// route, keying the subject on a bearer token (if present) or client IP.
func rateLimitMiddleware(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/query/health" {
			next.ServeHTTP(w, r)
			return
		}

		subj := ratelimit.Subject{UserID: bearerSubject(r), IP: clientIP(r)}
		result := limiter.Allow(subj)
		if !result.Allowed {
			w.Header().Set("Retry-After", result.RetryAfter.Round(time.Second).String())
			writeError(w, ragerr.New(ragerr.KindUpstream, ragerr.CodeRateLimitExceeded, "rate limit exceeded").
				WithDetails(map[string]string{"policy": string(result.Policy)}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerSubject(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// clientIP extracts the remote IP, stripping the port, mirroring
// 54b3r-tfai-go/internal/server/ratelimit.go's clientIP.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

// errorEnvelope is the §6 error response body.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("ragserver: encoding response: %v", err)
	}
}

// writeError renders err as the §6 error envelope with the status mapping
// from ragerr.HTTPStatusCode.
func writeError(w http.ResponseWriter, err error) {
	rerr, ok := ragerr.As(err)
	if !ok {
		rerr = ragerr.New(ragerr.KindInternal, ragerr.CodeInternalError, err.Error())
	}
	writeJSON(w, rerr.HTTPStatusCode(), errorEnvelope{Error: errorBody{
		Message: rerr.Message,
		Code:    rerr.Code,
		Details: rerr.Details,
	}})
}
