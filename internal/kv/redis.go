// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

package kv

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the External KV backend (spec §6 kv_backend: External),
// grounded on alexander-bruun-Orb's use of github.com/redis/go-redis/v9
// as its network-shared key-value layer.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects to addr (host:port).
func OpenRedis(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapBackendErr("kv.redis: get", err)
	}
	return v, true, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return wrapBackendErr("kv.redis: put", r.client.Set(ctx, key, value, 0).Err())
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return wrapBackendErr("kv.redis: delete", r.client.Del(ctx, key).Err())
}

// ScanPrefix iterates SCAN cursors matching prefix+"*", then fetches and
// sorts results by key. Redis's SCAN only guarantees that keys present for
// the whole iteration are returned at least once, so this is a
// best-effort snapshot rather than the strict point-in-time view bbolt's
// single read transaction provides; callers that need strict snapshot
// semantics should prefer the Embedded backend.
func (r *RedisStore) ScanPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapBackendErr("kv.redis: scan_prefix", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	sort.Strings(keys)
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrapBackendErr("kv.redis: mget", err)
	}

	pairs := make([]Pair, 0, len(keys))
	for i, key := range keys {
		sv, ok := values[i].(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		pairs = append(pairs, Pair{Key: key, Value: []byte(sv)})
	}
	return pairs, nil
}

func (r *RedisStore) Close() error {
	return wrapBackendErr("kv.redis: close", r.client.Close())
}
