package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// availabilityCache keeps resolved slot lists in Redis for a short TTL so a
// burst of chat traffic does not hammer the freebusy API.
type availabilityCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func newAvailabilityCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *availabilityCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if tracer == nil {
		tracer = otel.Tracer("lavie.internal.scheduling.cache")
	}
	return &availabilityCache{redis: client, ttl: ttl, tracer: tracer}
}

func availabilityKey(salonID, professionalID, date string, durationMins int) string {
	return fmt.Sprintf("availability:%s:%s:%s:%d", salonID, professionalID, date, durationMins)
}

func (c *availabilityCache) Load(ctx context.Context, key string) (*Availability, bool) {
	if c == nil {
		return nil, false
	}
	ctx, span := c.tracer.Start(ctx, "scheduling.cache_load")
	defer span.End()

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
		}
		return nil, false
	}
	var av Availability
	if err := json.Unmarshal(data, &av); err != nil {
		span.RecordError(err)
		return nil, false
	}
	return &av, true
}

func (c *availabilityCache) Store(ctx context.Context, key string, av *Availability) {
	if c == nil {
		return
	}
	ctx, span := c.tracer.Start(ctx, "scheduling.cache_store")
	defer span.End()

	data, err := json.Marshal(av)
	if err != nil {
		span.RecordError(err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
	}
}

// Invalidate drops a cached day after a booking lands on it.
func (c *availabilityCache) Invalidate(ctx context.Context, salonID, professionalID, date string) {
	if c == nil {
		return
	}
	pattern := fmt.Sprintf("availability:%s:%s:%s:*", salonID, professionalID, date)
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		c.redis.Del(ctx, iter.Val())
	}
}
