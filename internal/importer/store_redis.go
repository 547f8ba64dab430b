// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package importer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/platform/constants"
)

// RedisStatusStore implements [StatusStore] using Redis.
type RedisStatusStore struct {
	client redis.Cmdable
}

// NewRedisStatusStore creates a new Redis-backed [StatusStore].
func NewRedisStatusStore(client redis.Cmdable) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func statusKey(script backend.Script) string {
	return constants.RedisPrefixImportLast + string(script)
}

// Save overwrites the last result of the script. Results do not expire.
func (store *RedisStatusStore) Save(ctx context.Context, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis_import_encode_failed: %w", err)
	}

	if err := store.client.Set(ctx, statusKey(result.Script), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis_import_set_failed: %w", err)
	}

	return nil
}

// Load returns the stored results of the given scripts; scripts never run are absent.
func (store *RedisStatusStore) Load(ctx context.Context, scripts []backend.Script) (map[backend.Script]Result, error) {
	results := make(map[backend.Script]Result, len(scripts))
	if len(scripts) == 0 {
		return results, nil
	}

	keys := make([]string, len(scripts))
	for i, script := range scripts {
		keys[i] = statusKey(script)
	}

	values, err := store.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_import_mget_failed: %w", err)
	}

	for i, value := range values {
		payload, ok := value.(string)
		if !ok {
			continue
		}

		var result Result
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("redis_import_decode_failed: %w", err)
		}
		results[scripts[i]] = result
	}

	return results, nil
}
