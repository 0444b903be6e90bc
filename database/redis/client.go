package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	_ RedisClient = (*redis.Client)(nil)
	_ RedisClient = (*redis.ClusterClient)(nil)
)

// RedisClient is the part of the go-redis API the database relies on,
// served by both single node and cluster clients.
type RedisClient interface {
	redis.Scripter

	Ping(ctx context.Context) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd

	TxPipeline() redis.Pipeliner

	AddHook(hook redis.Hook)
	Close() error
}

// RedisConfig selects cluster mode when ClusterAddr is set, a single node
// at Addr otherwise.
type RedisConfig struct {
	Addr        string
	ClusterAddr []string
	Username    string
	Password    string

	PoolSize           int
	MinIdleConns       int
	MaxConnAge         time.Duration
	PoolFIFO           bool
	PoolTimeout        time.Duration
	IdleTimeout        time.Duration
	IdleCheckFrequency time.Duration

	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration

	// cluster only
	MaxRedirects   int
	ReadOnly       bool
	RouteByLatency bool
	RouteRandomly  bool
}
