package probe

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonwraymond/healthops/health"
)

// RedisConfig configures a Redis client built by NewRedisClient.
type RedisConfig struct {
	// Addrs lists one address for a single node, or several for a cluster.
	Addrs    []string
	Password string
	DB       int
}

// NewRedisClient creates a universal client for standalone, sentinel or
// cluster deployments depending on config.
func NewRedisClient(config RedisConfig) (goredis.UniversalClient, error) {
	if len(config.Addrs) == 0 {
		return nil, fmt.Errorf("%w: redis addresses", ErrMissingTarget)
	}
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    config.Addrs,
		Password: config.Password,
		DB:       config.DB,
	}), nil
}

// NewRedis creates a probe that sends PING through client.
func NewRedis(desc health.Descriptor, client goredis.UniversalClient) (health.Dependency, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client", ErrMissingClient)
	}
	if desc.Type == "" {
		desc.Type = health.TypeOtherDatabase
	}
	return health.NewPingDependency(desc, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	})
}
