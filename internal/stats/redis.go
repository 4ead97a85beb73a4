package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis persists pool counters in Redis hashes.
// A cumulative total hash never expires; per-minute bucket hashes carry
// a TTL so the series does not grow unbounded.
type Redis struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
	bucket string // "minute" (default) or "none"
}

type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

func WithBucket(bucket string) RedisOption {
	return func(r *Redis) { r.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		prefix: "pool:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Record(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.totalKey(), ev.Op, 1)
	if ev.Waited > 0 {
		pipe.HIncrBy(ctx, r.totalKey(), "waited_ms", ev.Waited.Milliseconds())
	}

	if r.bucket == "minute" {
		key := r.bucketKey(at)
		pipe.HIncrBy(ctx, key, ev.Op, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// totalKey is the cumulative hash; it never expires.
func (r *Redis) totalKey() string {
	return r.prefix + ":total"
}

// bucketKey is the per-minute hash for at, in UTC so buckets do not
// depend on the server timezone.
func (r *Redis) bucketKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", r.prefix, at.UTC().Format("200601021504"))
}
