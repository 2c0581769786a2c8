package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps products as JSON values in a Redis hash keyed by ID,
// with IDs drawn from a counter key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore creates a store under key. It does not touch Redis.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = "wiggly:products"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) seqKey() string {
	return s.key + ":seq"
}

// Seed stores products when the hash is empty. The counter is raised to
// the highest numeric seed ID.
func (s *RedisStore) Seed(ctx context.Context, products []Product) error {
	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("redis seed: %w", err)
	}
	if n > 0 {
		return nil
	}

	maxID := 0
	pipe := s.client.TxPipeline()
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		pipe.HSetNX(ctx, s.key, p.ID, data)
		if id, err := strconv.Atoi(p.ID); err == nil && id > maxID {
			maxID = id
		}
	}
	pipe.Set(ctx, s.seqKey(), maxID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis seed: %w", err)
	}
	return nil
}

// List returns all products ordered by ID.
func (s *RedisStore) List(ctx context.Context) ([]Product, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	out := make([]Product, 0, len(values))
	for id, raw := range values {
		var p Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", id, err)
		}
		out = append(out, p)
	}
	sortProducts(out)
	return out, nil
}

// Get returns one product.
func (s *RedisStore) Get(ctx context.Context, id string) (Product, error) {
	raw, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("redis get: %w", err)
	}
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	return p, nil
}

// Create adds a product with the next counter value as its ID.
func (s *RedisStore) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return Product{}, fmt.Errorf("redis create: %w", err)
	}
	p := Product{
		ID:          strconv.FormatInt(id, 10),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if err := s.put(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Update applies patch to a product inside an optimistic transaction.
func (s *RedisStore) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	var updated Product
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, s.key, id).Result()
		if errors.Is(err, redis.Nil) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		var p Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return fmt.Errorf("decode product %s: %w", id, err)
		}
		updated, err = patch.Apply(p)
		if err != nil {
			return err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, id, data)
			return nil
		})
		return err
	}, s.key)
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

// Delete removes a product.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, s.key, id).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, p Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.key, p.ID, data).Err(); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

var (
	_ ProductStore = (*MemoryStore)(nil)
	_ ProductStore = (*RedisStore)(nil)
)
