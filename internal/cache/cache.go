// Package cache provee el almacenamiento clave/valor de sesiones.
//
// Soporta:
//   - Memory (go-cache, in-process, desarrollo y un solo nodo)
//   - Redis (compartido entre réplicas)
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. ttl 0 no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key; no falla si no existe.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound indica que la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind     string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New crea un cliente de cache según la configuración. Para redis verifica
// la conexión antes de retornar.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Kind {
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("cache: redis ping failed: %w", err)
		}
		return NewRedis(rdb, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + k
}
