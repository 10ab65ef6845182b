package redis

import (
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiterStore shares rate limit counters across replicas
func NewLimiterStore(client redis.UniversalClient) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "audit:limiter",
	})
}
