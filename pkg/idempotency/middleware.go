package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
	"github.com/wms-platform/audit-service/pkg/middleware"
)

// HeaderIdempotencyKey is the HTTP header carrying the key
const HeaderIdempotencyKey = "Idempotency-Key"

// Defaults
const (
	DefaultMaxKeyLength    = 255
	DefaultRetention       = 24 * time.Hour
	DefaultLockTimeout     = 30 * time.Second
	DefaultMaxResponseSize = 1 << 20
)

// Config configures the idempotency middleware
type Config struct {
	ServiceName     string
	Repository      KeyRepository
	Logger          *logging.Logger
	Metrics         *metrics.Metrics
	RetentionPeriod time.Duration
	LockTimeout     time.Duration
	MaxKeyLength    int
	MaxResponseSize int

	// UserIDExtractor scopes keys to the caller when set
	UserIDExtractor func(*gin.Context) string
}

// DefaultConfig returns a Config with the default limits
func DefaultConfig(serviceName string, repository KeyRepository) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		RetentionPeriod: DefaultRetention,
		LockTimeout:     DefaultLockTimeout,
		MaxKeyLength:    DefaultMaxKeyLength,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

type responseWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through untouched.
func Middleware(config *Config) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	record := func(outcome string) {
		if config.Metrics != nil {
			config.Metrics.RecordIdempotency(outcome)
		}
	}

	return func(c *gin.Context) {
		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			middleware.AbortWithAppError(c, errors.NewAppError("IDEMPOTENCY_KEY_INVALID",
				fmt.Sprintf("Invalid idempotency key: %v", err), http.StatusBadRequest))
			return
		}

		var userID string
		if config.UserIDExtractor != nil {
			userID = config.UserIDExtractor(c)
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		fingerprint := ComputeFingerprint(body)

		ctx := c.Request.Context()
		now := time.Now().UTC()
		existing, isNew, err := config.Repository.AcquireLock(ctx, &IdempotencyKey{
			Key:                key,
			UserID:             userID,
			ServiceID:          config.ServiceName,
			RequestPath:        c.Request.URL.Path,
			RequestMethod:      c.Request.Method,
			RequestFingerprint: fingerprint,
			CreatedAt:          now,
			ExpiresAt:          now.Add(config.RetentionPeriod),
		})
		if err != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to acquire idempotency lock", "key", key)
			middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency store"))
			return
		}

		if existing.RequestFingerprint != fingerprint || (userID != "" && existing.UserID != userID) {
			record("mismatch")
			middleware.AbortWithAppError(c, errors.NewAppError("IDEMPOTENCY_PARAMETER_MISMATCH",
				"Request parameters differ from original request with this idempotency key", http.StatusUnprocessableEntity))
			return
		}

		if existing.IsCompleted() {
			record("hit")
			for k, v := range existing.ResponseHeaders {
				c.Header(k, v)
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(existing.ResponseCode, "application/json; charset=utf-8", existing.ResponseBody)
			c.Abort()
			return
		}

		if !isNew && existing.IsLocked() && time.Since(*existing.LockedAt) < config.LockTimeout {
			record("concurrent")
			middleware.AbortWithAppError(c, errors.NewAppError("IDEMPOTENCY_CONCURRENT_REQUEST",
				"A request with this idempotency key is currently being processed", http.StatusConflict))
			return
		}

		record("miss")
		keyID := existing.ID.Hex()

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		c.Writer = writer

		c.Next()

		// Server errors are not replayed, so the client can retry with the same key.
		if writer.statusCode >= http.StatusInternalServerError {
			if err := config.Repository.ReleaseLock(ctx, keyID); err != nil {
				logger.WithContext(ctx).WithError(err).Warn("Failed to release idempotency lock", "key", key)
			}
			return
		}

		responseBody := writer.body.Bytes()
		if len(responseBody) > config.MaxResponseSize {
			responseBody = []byte(fmt.Sprintf(`{"code":"RESPONSE_TOO_LARGE","message":"Response too large to cache","size":%d}`, len(responseBody)))
		}

		headers := map[string]string{}
		if loc := c.Writer.Header().Get("Location"); loc != "" {
			headers["Location"] = loc
		}

		if err := config.Repository.StoreResponse(ctx, keyID, writer.statusCode, responseBody, headers); err != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to store idempotent response", "key", key)
		}
	}
}
