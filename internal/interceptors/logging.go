// interceptors — серверные gRPC-интерсепторы служебного порта
// (health-check, reflection): логирование, перехват паник, таймаут.
package interceptors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
)

// healthPrefix — методы health-check логируются на уровне Debug:
// пробы оркестратора приходят постоянно и засоряют журнал.
const healthPrefix = "/grpc.health.v1.Health/"

// UnaryLoggingInterceptor реализует логирование unary-вызовов с контекстным логгером.
//
// Поведение и формат логов:
//   - Вытягивает x-request-id из входящего metadata, иначе генерирует UUID;
//   - Извлекает peer (IP:port клиента), метод (FullMethod);
//   - Кладёт обогащённый *slog.Logger в context (internal/pkg/log);
//   - После выполнения handler пишет одну строку msg="grpc_request" с code и dur.
//     Уровень: Debug для health-check, Error для Internal/Unknown/DataLoss, иначе Info.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		l := requestLogger(ctx, base, info.FullMethod)
		ctx = log.Into(ctx, l)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		l.Log(ctx, levelFor(info.FullMethod, code), "grpc_request",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

// StreamLoggingInterceptor — то же для stream-вызовов (health Watch).
func StreamLoggingInterceptor(base *slog.Logger) grpc.StreamServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		l := requestLogger(ss.Context(), base, info.FullMethod)
		err := handler(srv, &loggedStream{ServerStream: ss, ctx: log.Into(ss.Context(), l)})

		code := status.Code(err)
		l.Log(ss.Context(), levelFor(info.FullMethod, code), "grpc_stream",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return err
	}
}

func requestLogger(ctx context.Context, base *slog.Logger, method string) *slog.Logger {
	var rid string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			rid = v[0]
		}
	}
	if rid == "" {
		rid = uuid.NewString()
	}

	peerStr := "-"
	if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
		peerStr = p.Addr.String()
	}

	return base.With(
		slog.String("request_id", rid),
		slog.String("method", method),
		slog.String("peer", peerStr),
	)
}

func levelFor(method string, code codes.Code) slog.Level {
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return slog.LevelError
	}

	if strings.HasPrefix(method, healthPrefix) {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

// loggedStream подменяет контекст стрима на контекст с логгером.
type loggedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *loggedStream) Context() context.Context { return s.ctx }
