// Package cache stores catalog responses between runs.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/cache/redisstore"
)

type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Name() string
}

// Memory is a size-bounded in-process cache; every entry shares one TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 128
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	m.lru.Add(key, val)
	return nil
}

func (m *Memory) Name() string { return "memory" }

type Redis struct {
	cli *redisstore.Client
}

func NewRedis(cli *redisstore.Client) *Redis { return &Redis{cli: cli} }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return r.cli.Get(ctx, key)
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, key, val, ttl)
}

func (r *Redis) Name() string { return "redis" }
