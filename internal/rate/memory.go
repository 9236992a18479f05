package rate

import (
	"context"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	xrate "golang.org/x/time/rate"
)

// MemoryLimiter es un token bucket por clave para una sola réplica. Las
// claves sin uso expiran tras dos ventanas.
type MemoryLimiter struct {
	cfg     Config
	buckets *gocache.Cache
	now     func() time.Time
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg = cfg.withDefaults()
	return &MemoryLimiter{
		cfg:     cfg,
		buckets: gocache.New(2*cfg.Window, cfg.Window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) bucket(key string) *xrate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		l.buckets.SetDefault(key, v)
		return v.(*xrate.Limiter)
	}
	every := xrate.Every(l.cfg.Window / time.Duration(l.cfg.Limit))
	lim := xrate.NewLimiter(every, l.cfg.Limit)
	// Add falla si otro request creó el bucket primero.
	if err := l.buckets.Add(key, lim, gocache.DefaultExpiration); err != nil {
		if v, ok := l.buckets.Get(key); ok {
			return v.(*xrate.Limiter)
		}
	}
	return lim
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	now := l.now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Result{}, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: d}, nil
	}
	return Result{Allowed: true, Remaining: int64(math.Floor(lim.TokensAt(now)))}, nil
}
