package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field es el campo estructurado de zap.
type Field = zap.Field

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Dominio

func PersonID(v string) zap.Field { return zap.String("person_id", v) }
func OrgID(v string) zap.Field { return zap.String("org_id", v) }
func ExternalID(v string) zap.Field { return zap.String("external_id", v) }
func Username(v string) zap.Field { return zap.String("username", v) }

// Email registra el email con la parte local enmascarada (j***@uc.cl).
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// MaskEmail deja visible la primera letra y el dominio.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// Sistema

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Err(err error) zap.Field { return zap.Error(err) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
