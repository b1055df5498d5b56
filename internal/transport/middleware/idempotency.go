package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stdErrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	// how long the in-progress marker lives if the handler never finishes
	provisionalLockTTL = 60 * time.Second
	maxKeyLength       = 255
)

var (
	ErrIdempotencyKeyReused = errors.NewConflictError("Idempotency-Key reused with a different request body", errors.ErrCodeIdempotencyKeyReused)
	ErrIdempotencyInFlight  = errors.NewConflictError("A request with this Idempotency-Key is already in progress", errors.ErrCodeOperationInProgress)
)

type idempEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

// Idempotency replays the stored response for a repeated Idempotency-Key.
// The key is scoped by method, path and authenticated user. Requests without
// the header pass through. 5xx responses are not stored so the client may retry.
func Idempotency(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			reqKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if reqKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(reqKey) > maxKeyLength {
				writeAppError(w, errors.NewValidationFieldError("Idempotency-Key", "Idempotency-Key is too long", errors.ErrCodeValidationFailed))
				return
			}

			var userID string
			if u, ok := auth.UserFromContext(r.Context()); ok && u != nil {
				userID = strconv.FormatInt(u.ID, 10)
			}

			var body []byte
			if r.Body != nil {
				b, err := io.ReadAll(r.Body)
				if err != nil {
					logger.Warn("idempotent request body unreadable", "error", err)
					writeAppError(w, errors.NewValidationFieldError("body", "request body could not be read", errors.ErrCodeValidationFailed))
					return
				}
				body = b
			}
			r.Body = io.NopCloser(bytes.NewBuffer(body))
			bhash := bodyHash(body)

			key := buildKey(r.Method, r.URL.Path, userID, reqKey)
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			ok, err := provisionalSet(ctx, rdb, key, idempEntry{InProgress: true, BodySHA256: bhash, CreatedAt: nowUTC()})
			if err != nil {
				logger.Error("idempotency store unavailable", "error", err)
				writeAppError(w, errors.NewUnavailableError("idempotency store unavailable", errors.ErrCodeIdempotencyUnavailable, err))
				return
			}
			if !ok {
				cur, err := loadEntry(ctx, rdb, key)
				if err != nil && !stdErrors.Is(err, redis.Nil) {
					logger.Warn("idempotency entry unreadable", "key", key, "error", err)
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
					writeAppError(w, ErrIdempotencyKeyReused)
					return
				}
				if !cur.InProgress && cur.Code != 0 {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(ReplayedHeader, "true")
					w.WriteHeader(cur.Code)
					_, _ = w.Write(cur.Body)
					return
				}
				writeAppError(w, ErrIdempotencyInFlight)
				return
			}

			rec := &respRecorder{w: w, buf: &bytes.Buffer{}, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
			defer storeCancel()

			if rec.code >= http.StatusInternalServerError {
				if err := rdb.Del(storeCtx, key).Err(); err != nil {
					logger.Warn("idempotency marker not cleared", "key", key, "error", err)
				}
				return
			}
			final := idempEntry{Code: rec.code, Body: rec.buf.Bytes(), BodySHA256: bhash, CreatedAt: nowUTC()}
			if err := saveFinal(storeCtx, rdb, key, final, ttl); err != nil {
				logger.Warn("idempotent response not stored", "key", key, "error", err)
			}
		})
	}
}

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

func buildKey(method, path, userID, requestKey string) string {
	return "idemp:" + strings.ToLower(method) + ":" + path + ":" + userID + ":" + requestKey
}

func provisionalSet(ctx context.Context, rdb *redis.Client, key string, entry idempEntry) (bool, error) {
	payload, _ := json.Marshal(entry)
	return rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (idempEntry, error) {
	var e idempEntry
	v, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

func saveFinal(ctx context.Context, rdb *redis.Client, key string, entry idempEntry, ttl time.Duration) error {
	payload, _ := json.Marshal(entry)
	return rdb.Set(ctx, key, payload, ttl).Err()
}
