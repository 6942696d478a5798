package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dialogue:state:"

// RedisStore keeps call states in Redis so multiple API instances can serve
// webhook turns for the same call. The key TTL doubles as the idle sweep:
// every write refreshes it, and an abandoned call simply expires.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisStore) Create(ctx context.Context, s State) error {
	if s.CallID == "" {
		return errors.New("dialogue: call_id required")
	}
	s.LastActivity = r.now()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("dialogue: marshal state: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, redisKeyPrefix+s.CallID, raw, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("dialogue: create state: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, callID string) (State, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("dialogue: get state: %w", err)
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("dialogue: unmarshal state: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, s State) error {
	if s.CallID == "" {
		return errors.New("dialogue: call_id required")
	}
	s.LastActivity = r.now()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("dialogue: marshal state: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+s.CallID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("dialogue: put state: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, callID string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("dialogue: delete state: %w", err)
	}
	return nil
}
