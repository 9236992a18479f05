// Package audit escribe eventos de auditoría (altas, bajas, logins) al
// logger estructurado con el componente "audit".
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/feuc/declaraciones/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventLogin          = "login"
	EventLogout         = "logout"
	EventPersonCreated  = "person.created"
	EventMemberAdded    = "membership.added"
	EventMemberRemoved  = "membership.removed"
	EventStatementAdded = "statement.created"
)

// Log escribe un evento con actor y campos extra.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	base := []zap.Field{
		logger.Component("audit"),
		zap.String("event", event),
		zap.Time("ts", time.Now().UTC()),
	}
	logger.From(ctx).Info("audit", append(base, fields...)...)
}
