package alerts

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const prefKeyPrefix = "alerts:pref:sound:"

// RedisPreferenceStore keeps sound preferences in redis so they survive
// reconnects and restarts.
type RedisPreferenceStore struct {
	client *redis.Client
}

// NewRedisPreferenceStore creates the store.
func NewRedisPreferenceStore(client *redis.Client) *RedisPreferenceStore {
	return &RedisPreferenceStore{client: client}
}

// LoadSound reads the stored preference.
func (s *RedisPreferenceStore) LoadSound(ctx context.Context, userID string) (bool, bool, error) {
	val, err := s.client.Get(ctx, prefKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, err
	}
	return val == "1", true, nil
}

// SaveSound writes the preference.
func (s *RedisPreferenceStore) SaveSound(ctx context.Context, userID string, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	return s.client.Set(ctx, prefKeyPrefix+userID, val, 0).Err()
}
