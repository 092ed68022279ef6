package caching

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dukapos"

// Cache kinds. Organization-scoped keys are laid out as dukapos:<kind>:<org>:<rest>.
const (
	KindStockLevels = "stock_levels"
	KindCapacity    = "capacity"
	KindAlerts      = "alerts"
)

type CacheService interface {
	// GetJSON decodes the cached value into dest. It reports false on a cache miss.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// InvalidateOrganization drops the derived views (stock levels, capacity) of one organization.
	InvalidateOrganization(ctx context.Context, orgID uuid.UUID) error

	// Distributed locks
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func StockLevelsKey(orgID uuid.UUID, query interface{}) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, KindStockLevels, orgID, Fingerprint(query))
}

func CapacityKey(orgID, locationID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, KindCapacity, orgID, locationID)
}

func AlertsKey(orgID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, KindAlerts, orgID)
}

func ProductKey(orgID, productID uuid.UUID) string {
	return fmt.Sprintf("%s:product:%s:%s", keyPrefix, orgID, productID)
}

func LockKey(resource string, id uuid.UUID) string {
	return fmt.Sprintf("%s:lock:%s:%s", keyPrefix, resource, id)
}

// Fingerprint hashes a query value into a short stable key part.
func Fingerprint(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", v))
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:8])
}

func (r *redisCacheService) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCacheService) InvalidateOrganization(ctx context.Context, orgID uuid.UUID) error {
	for _, kind := range []string{KindStockLevels, KindCapacity} {
		pattern := fmt.Sprintf("%s:%s:%s:*", keyPrefix, kind, orgID)
		if err := r.deleteMatching(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

// deleteMatching walks the keyspace with SCAN so large keyspaces do not block the server.
func (r *redisCacheService) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *redisCacheService) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

// releaseScript deletes the lock only while it still holds our value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *redisCacheService) ReleaseLock(ctx context.Context, key, value string) error {
	return releaseScript.Run(ctx, r.client, []string{key}, value).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
