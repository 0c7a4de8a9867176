package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-session-auth/internal/audit"
)

// ClientInfo кладёт в контекст IP, User-Agent и request id для аудит-событий.
// trustProxy разрешает брать IP из X-Forwarded-For (первый адрес);
// включать только за доверенным балансировщиком.
func ClientInfo(trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := audit.Client{
				IP:        clientIP(r, trustProxy),
				UserAgent: r.UserAgent(),
				RequestID: RequestIDFrom(r.Context()),
			}

			next.ServeHTTP(w, r.WithContext(audit.WithClient(r.Context(), c)))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
