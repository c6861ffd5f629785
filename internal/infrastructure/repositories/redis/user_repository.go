package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"
	"pairlink/pkg/cache"
	"pairlink/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
)

// userCacheTTL bounds staleness of the read-through cache. User records are
// immutable after registration, so a short TTL only exists to bound memory.
const userCacheTTL = 5 * time.Minute

type RedisUserRepository struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
	cache  *cache.Cache
	prefix string
}

func NewRedisUserRepository(client *redis.Client) ports.UserRepository {
	return &RedisUserRepository{
		client: client,
		cb:     circuitbreaker.New(circuitbreaker.DefaultConfig()),
		cache:  cache.NewCache(userCacheTTL),
		prefix: "pairlink:user:",
	}
}

func (r *RedisUserRepository) userKey(id domain.UserID) string {
	return r.prefix + string(id)
}

func (r *RedisUserRepository) emailKey(email string) string {
	return r.prefix + "email:" + email
}

func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	// Losing the SETNX race is a business outcome, not a Redis failure, so it
	// must not count against the circuit breaker.
	var taken bool
	err = r.cb.Execute(ctx, func() error {
		// The email index doubles as the uniqueness guard: SETNX loses when
		// the address is already claimed.
		claimed, err := r.client.SetNX(ctx, r.emailKey(user.Email), string(user.ID), 0).Result()
		if err != nil {
			return fmt.Errorf("failed to claim email index: %w", err)
		}
		if !claimed {
			taken = true
			return nil
		}
		return r.client.Set(ctx, r.userKey(user.ID), data, 0).Err()
	})
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrEmailTaken
	}

	r.cache.Set(string(user.ID), user)
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	if cached, ok := r.cache.Get(string(id)); ok {
		if user, ok := cached.(*domain.User); ok {
			return user, nil
		}
	}

	var user *domain.User
	err := r.cb.Execute(ctx, func() error {
		data, err := r.client.Get(ctx, r.userKey(id)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get user from Redis: %w", err)
		}

		var u domain.User
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return fmt.Errorf("failed to unmarshal user: %w", err)
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	r.cache.Set(string(id), user)
	return user, nil
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var id string
	var found bool
	err := r.cb.Execute(ctx, func() error {
		val, err := r.client.Get(ctx, r.emailKey(email)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to resolve email index: %w", err)
		}
		id = val
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, domain.UserID(id))
}
