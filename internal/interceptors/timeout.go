package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout возвращает unary-интерсептор, который ограничивает вызов сроком d.
//
// Контракт:
//  1. d <= 0 — handler вызывается без изменения контекста;
//  2. входящий дедлайн раньше now+d — сохраняется как есть;
//  3. иначе ctx оборачивается context.WithTimeout(ctx, d), cancel() вызывается всегда.
//
// По истечении срока handler обычно возвращает context.DeadlineExceeded;
// gRPC-рантайм транслирует это в codes.DeadlineExceeded.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}

		if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
			return handler(ctx, req)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return handler(ctx, req)
	}
}
