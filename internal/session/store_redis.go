// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/psu-triup/portal/internal/platform/constants"
)

// RedisStore implements [Store] using Redis.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a new Redis-backed [Store].
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return constants.RedisPrefixSession + id
}

/*
Save stores the session as JSON with the given TTL.

Parameters:
  - ctx: context.Context
  - session: *Session
  - ttl: time.Duration (time left until the backend expiry)

Returns:
  - error: Storage failures
*/
func (store *RedisStore) Save(ctx context.Context, session *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis_session_set_failed: non-positive ttl %s", ttl)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	if err := store.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}

	return nil
}

/*
Find retrieves a session by id.

Description: Returns [ErrNotFound] if the key is absent or expired.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - *Session
  - error: ErrNotFound or connectivity errors
*/
func (store *RedisStore) Find(ctx context.Context, id string) (*Session, error) {
	payload, err := store.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}

	return &session, nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (store *RedisStore) Delete(ctx context.Context, id string) error {
	if err := store.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}
