package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yanizio/catalog-admin/internal/workflow"
)

const (
	keyPrefix = "catalog:form:"
	// lockTTL bounds how long a crashed holder can block an instance.
	lockTTL = 2 * time.Minute
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a store shared across replicas.
type Redis struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedis wraps an existing client.  Instances expire ttl after their
// last write.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func instanceKey(id string) string { return keyPrefix + id }
func lockKey(id string) string     { return keyPrefix + id + ":lock" }

func (r *Redis) Get(ctx context.Context, id string) (*workflow.Instance, error) {
	raw, err := r.rdb.Get(ctx, instanceKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, workflow.ErrInstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get instance: %w", err)
	}
	var inst workflow.Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *Redis) Put(ctx context.Context, inst *workflow.Instance) error {
	raw, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, instanceKey(inst.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set instance: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, instanceKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del instance: %w", err)
	}
	return nil
}

// Lock takes a SETNX lock owned by a random token.
func (r *Redis) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, lockKey(id), token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock: %w", err)
	}
	if !ok {
		return nil, workflow.ErrBusy
	}
	return func() {
		// Request context may already be done; release on a short budget.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.rdb, []string{lockKey(id)}, token).Err()
	}, nil
}
