// internal/respcache/redis.go
package respcache

import (
	"context"
	"encoding/json"
	"time"

	"faq-chatbot/internal/common/database"
	"faq-chatbot/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "respcache:"

// Redis is a Store backed by a shared Redis instance. Redis errors degrade to
// a cache miss and are logged; a cache failure never fails a request.
type Redis struct {
	client *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewRedis(client *database.RedisClient, ttl time.Duration, log logger.Logger) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{
			"component": "respcache",
		}),
	}
}

func (r *Redis) Get(ctx context.Context, question string) (*Entry, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+Key(question))
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache lookup failed, treating as miss", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		r.logger.Warn("cache entry corrupt, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}

	return &entry, true
}

func (r *Redis) Put(ctx context.Context, question string, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("cache entry encode failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	// TTL enforcement is delegated to Redis key expiry.
	if err := r.client.Set(ctx, redisKeyPrefix+Key(question), raw, r.ttl); err != nil {
		r.logger.Warn("cache store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
