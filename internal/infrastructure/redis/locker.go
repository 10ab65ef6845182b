package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/pkg/logging"
)

const (
	defaultLockTTL = 2 * time.Minute
	lockPrefix     = "audit:lock:"
)

// UploadLocker serialises bulk uploads across replicas with redislock
type UploadLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewUploadLocker creates an UploadLocker
func NewUploadLocker(client redislock.RedisClient, logger *logging.Logger) *UploadLocker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &UploadLocker{
		client: redislock.New(client),
		ttl:    defaultLockTTL,
		logger: logger.WithComponent("upload-locker"),
	}
}

// Lock obtains name without waiting. A held lock is application.ErrUploadInProgress.
func (l *UploadLocker) Lock(ctx context.Context, name string) (func(), error) {
	lock, err := l.client.Obtain(ctx, lockPrefix+name, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, application.ErrUploadInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain %s lock: %w", name, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.WithError(err).Warn("Failed to release lock", "name", name)
		}
	}, nil
}
