package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"

	apierrors "github.com/pribylovaa/go-session-auth/internal/errors"
	logctx "github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/security"
)

// TokenValidator проверяет access-токен.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (security.Identity, error)
}

// AuthBearer требует заголовок "Authorization: Bearer <token>" с валидным
// access-токеном. Владелец токена кладётся в контекст (IdentityFrom),
// а account_id — в request-scoped логгер. Иначе 401.
func AuthBearer(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				apierrors.WriteStatus(w, r, codes.Unauthenticated, "missing bearer token")
				return
			}

			id, err := v.ValidateAccessToken(r.Context(), token)
			if err != nil {
				logctx.From(r.Context()).Debug("access_token_rejected", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = logctx.With(ctx, slog.String("account_id", id.AccountID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
