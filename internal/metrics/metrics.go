// Package metrics define las métricas de dominio. Vive aparte para que
// los servicios no dependan del paquete http.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "declaraciones_logins_total",
		Help: "Intentos de login por resultado",
	}, []string{"result"}) // ok|provider_error|domain_rejected|unverified

	PersonsProvisioned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "declaraciones_persons_provisioned_total",
		Help: "Personas creadas en su primer login",
	})

	MembershipChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "declaraciones_membership_changes_total",
		Help: "Altas y bajas de miembros por resultado",
	}, []string{"op", "result"}) // op: add|remove

	StatementsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "declaraciones_statements_created_total",
		Help: "Declaraciones publicadas",
	})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "declaraciones_rate_limited_total",
		Help: "Requests rechazadas por rate limit",
	}, []string{"route"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{LoginsTotal, PersonsProvisioned, MembershipChanges, StatementsCreated, RateLimited}
}

// Register registra las métricas de dominio en reg (o el default si es nil).
// Registrar dos veces en el mismo registry no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
