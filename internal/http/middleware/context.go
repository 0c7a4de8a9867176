package middleware

import (
	"context"

	"github.com/pribylovaa/go-session-auth/internal/security"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxIdentity
)

// RequestIDFrom возвращает X-Request-Id текущего запроса.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// IdentityFrom возвращает владельца проверенного access-токена.
// ok == false, если запрос не проходил через AuthBearer.
func IdentityFrom(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(security.Identity)
	return id, ok
}

// WithIdentity кладёт владельца токена в контекст (нужно и тестам хендлеров).
func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}
