// Package health expone /healthz.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger es una dependencia que puede verificar su conexión.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Controllers struct {
	checks map[string]Pinger
}

func NewControllers(checks map[string]Pinger) *Controllers {
	return &Controllers{checks: checks}
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthz responde 200 si todas las dependencias responden, 503 si no.
func (c *Controllers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, p := range c.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
