package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

const (
	itemsKeyPart   = ":items:"
	revokedKeyPart = ":revoked:"
)

// Returns the remaining quantity, or nil when the field does not exist.
var takeQuantityScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]
local amount = tonumber(ARGV[2])

local current = redis.call('HGET', key, field)
if not current then
	return false
end

current = tonumber(current)
if current <= amount then
	redis.call('HDEL', key, field)
	return 0
end

return redis.call('HINCRBY', key, field, -amount)
`)

var incrementExistingScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]

if redis.call('HEXISTS', key, field) == 0 then
	return false
end

local updated = redis.call('HINCRBY', key, field, ARGV[2])
if updated <= 0 then
	redis.call('HDEL', key, field)
	return 0
end

return updated
`)

// RedisAdapter keeps one hash per user: field = item name, value = quantity.
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	return &RedisAdapter{client: client, prefix: prefix}
}

func (r *RedisAdapter) itemsKey(userID string) string {
	return r.prefix + itemsKeyPart + userID
}

func (r *RedisAdapter) GetItem(ctx context.Context, userID, name string) (*domain.Item, error) {
	raw, err := r.client.HGet(ctx, r.itemsKey(userID), name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget item: %w", err)
	}

	quantity, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("parse quantity for %q: %w", name, err)
	}
	return &domain.Item{Name: name, Quantity: quantity}, nil
}

func (r *RedisAdapter) GetAllItems(ctx context.Context, userID string) ([]domain.Item, error) {
	fields, err := r.client.HGetAll(ctx, r.itemsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall items: %w", err)
	}

	items := make([]domain.Item, 0, len(fields))
	for name, raw := range fields {
		quantity, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse quantity for %q: %w", name, err)
		}
		items = append(items, domain.Item{Name: name, Quantity: quantity})
	}
	return items, nil
}

func (r *RedisAdapter) CreateItem(ctx context.Context, userID, name string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}

	ok, err := r.client.HSetNX(ctx, r.itemsKey(userID), name, quantity).Result()
	if err != nil {
		return fmt.Errorf("hsetnx item: %w", err)
	}
	if !ok {
		return fmt.Errorf("item %q: %w", name, domain.ErrAlreadyExists)
	}
	return nil
}

func (r *RedisAdapter) IncrementItem(ctx context.Context, userID, name string, delta int) error {
	err := incrementExistingScript.Run(ctx, r.client, []string{r.itemsKey(userID)}, name, delta).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("increment item: %w", err)
	}
	return nil
}

func (r *RedisAdapter) AddQuantity(ctx context.Context, userID, name string, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("%w: delta must be positive", domain.ErrInvalidArgument)
	}
	return r.client.HIncrBy(ctx, r.itemsKey(userID), name, int64(delta)).Err()
}

func (r *RedisAdapter) TakeQuantity(ctx context.Context, userID, name string, amount int) (int, error) {
	remaining, err := takeQuantityScript.Run(ctx, r.client, []string{r.itemsKey(userID)}, name, amount).Int()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("take quantity: %w", err)
	}
	return remaining, nil
}

func (r *RedisAdapter) DeleteItem(ctx context.Context, userID, name string) error {
	return r.client.HDel(ctx, r.itemsKey(userID), name).Err()
}

func (r *RedisAdapter) DeleteScope(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.itemsKey(userID)).Err()
}

// RevokeToken marks a token id as signed out until ttl elapses.
// Returns false if it was already revoked.
func (r *RedisAdapter) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}

	ok, err := r.client.SetNX(ctx, r.prefix+revokedKeyPart+tokenID, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+revokedKeyPart+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
