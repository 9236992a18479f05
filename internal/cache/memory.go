package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implementa Client sobre go-cache.
type MemoryClient struct {
	c      *gocache.Cache
	prefix string
}

// NewMemory crea un cliente en memoria con limpieza de expirados cada minuto.
func NewMemory(prefix string) *MemoryClient {
	return &MemoryClient{c: gocache.New(gocache.NoExpiration, time.Minute), prefix: prefix}
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(prefixed(m.prefix, key), value, ttl)
	return nil
}

func (m *MemoryClient) Delete(_ context.Context, key string) error {
	m.c.Delete(prefixed(m.prefix, key))
	return nil
}

func (m *MemoryClient) Ping(context.Context) error { return nil }

func (m *MemoryClient) Close() error {
	m.c.Flush()
	return nil
}

// Len retorna la cantidad de keys (incluye expiradas aún no limpiadas).
func (m *MemoryClient) Len() int { return m.c.ItemCount() }
