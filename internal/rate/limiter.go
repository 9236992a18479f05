// Package rate limita requests por clave (IP del cliente) en /login.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config de un limitador: Limit requests por Window.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 20
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	return c
}

// RedisLimiter: ventana fija con INCR + EXPIRE, compartida entre réplicas.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	cfg    Config
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, cfg: cfg.withDefaults(), now: time.Now}
}

func (l *RedisLimiter) key(key string, winStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.cfg.Window)
	redisKey := l.key(key, winStart)

	hits, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	// expiración en el primer hit de la ventana
	if hits == 1 {
		_ = l.client.Expire(ctx, redisKey, l.cfg.Window).Err()
	}

	limit := int64(l.cfg.Limit)
	res := Result{Allowed: hits <= limit, Remaining: limit - hits}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		// resto de la ventana
		res.RetryAfter = winStart.Add(l.cfg.Window).Sub(now)
	}
	return res, nil
}

// New elige el limitador: redis si hay cliente, memoria si no.
func New(cfg Config, client *rdb.Client, prefix string) Limiter {
	if client != nil {
		return NewRedisLimiter(client, prefix, cfg)
	}
	return NewMemoryLimiter(cfg)
}
