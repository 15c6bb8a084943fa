package salon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

const cacheTTL = 5 * time.Minute

// Reader is the repository surface the cached store wraps.
type Reader interface {
	Get(ctx context.Context, id string) (*Salon, error)
	GetByAsaasCustomer(ctx context.Context, customerID string) (*Salon, error)
	UpdatePlan(ctx context.Context, id, plan string) error
	SetAsaasCustomerID(ctx context.Context, id, customerID string) error
}

// Store reads salons through a short-lived Redis cache. Every request
// resolves the tenant, so the hot path avoids a database round trip.
type Store struct {
	repo   Reader
	redis  *redis.Client
	logger *logging.Logger
}

func NewStore(repo Reader, redisClient *redis.Client, logger *logging.Logger) *Store {
	if repo == nil {
		panic("salon: repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{repo: repo, redis: redisClient, logger: logger}
}

func cacheKey(id string) string {
	return fmt.Sprintf("salon:%s", id)
}

func (s *Store) Get(ctx context.Context, id string) (*Salon, error) {
	if cached := s.loadCached(ctx, cacheKey(id)); cached != nil {
		return cached, nil
	}
	sal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.storeCached(ctx, cacheKey(id), sal)
	return sal, nil
}

// GetByAsaasCustomer is uncached; it only runs on webhook deliveries.
func (s *Store) GetByAsaasCustomer(ctx context.Context, customerID string) (*Salon, error) {
	return s.repo.GetByAsaasCustomer(ctx, customerID)
}

func (s *Store) UpdatePlan(ctx context.Context, id, plan string) error {
	if err := s.repo.UpdatePlan(ctx, id, plan); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Store) SetAsaasCustomerID(ctx context.Context, id, customerID string) error {
	if err := s.repo.SetAsaasCustomerID(ctx, id, customerID); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Store) loadCached(ctx context.Context, key string) *Salon {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var sal Salon
	if err := json.Unmarshal(data, &sal); err != nil {
		return nil
	}
	return &sal
}

func (s *Store) storeCached(ctx context.Context, key string, sal *Salon) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(sal)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		s.logger.Warn("salon cache write failed", "key", key, "error", err)
	}
}

func (s *Store) invalidate(ctx context.Context, id string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(id)).Err(); err != nil {
		s.logger.Warn("salon cache invalidation failed", "salon_id", id, "error", err)
	}
}
