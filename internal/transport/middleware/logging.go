package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	errors "github.com/frahmantamala/loan-servicing/internal"
)

const (
	filtered = "[FILTERED]"

	// maxLoggedBody caps how much of a request or response body reaches the log.
	maxLoggedBody = 4 << 10
)

// credentialFields are matched as substrings of lowercased header and JSON keys.
// "secret" covers the processor client_secret returned by intent creation.
var credentialFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"cookie",
	"credential",
}

// borrowerFields are applicant financials; matched exactly, since "age" or
// "dti" would otherwise hit unrelated keys.
var borrowerFields = map[string]struct{}{
	"annual_income":    {},
	"credit_score":     {},
	"dti":              {},
	"past_defaults":    {},
	"employment_years": {},
	"savings":          {},
	"collateral_value": {},
	"age":              {},
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	if _, ok := borrowerFields[k]; ok {
		return true
	}
	for _, f := range credentialFields {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs each request and its response with credentials and
// applicant financials masked.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := errors.TraceIDFromContext(r.Context())
			if traceID == "" {
				traceID = middleware.GetReqID(r.Context())
			}

			logRequest(logger, r, traceID)

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			logResponse(logger, r, rec, time.Since(start), traceID)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func logRequest(logger *slog.Logger, r *http.Request, traceID string) {
	var body string
	if r.Body != nil && isJSON(r.Header.Get("Content-Type")) {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		body = redactBody(raw)
	}

	logger.Info("incoming request",
		"trace_id", traceID,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", redactHeaders(r.Header),
		"body", body,
	)
}

func logResponse(logger *slog.Logger, r *http.Request, rw *responseRecorder, duration time.Duration, traceID string) {
	status := rw.status
	if status == 0 {
		status = http.StatusOK
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	var body string
	if isJSON(rw.Header().Get("Content-Type")) {
		body = redactBody(rw.body.Bytes())
	}

	logger.Log(r.Context(), level, "response",
		"trace_id", traceID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
		"body", body,
	)
}

// isJSON is true for JSON and for an unset content type, which clients
// commonly omit on small POST bodies.
func isJSON(contentType string) bool {
	return contentType == "" || strings.Contains(contentType, "json")
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) >= maxLoggedBody {
		return "[TRUNCATED]"
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "[UNPARSEABLE]"
	}

	masked, err := json.Marshal(redactValue(data))
	if err != nil {
		return "[UNPARSEABLE]"
	}
	return string(masked)
}

func redactValue(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = redactValue(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
