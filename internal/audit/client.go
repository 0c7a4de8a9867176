package audit

import (
	"context"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// Client — сведения о вызывающей стороне для аудит-событий.
type Client struct {
	IP        string
	UserAgent string
	RequestID string
}

type clientKey struct{}

// WithClient кладёт сведения о клиенте в контекст.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFrom достаёт сведения о клиенте из контекста.
func ClientFrom(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(clientKey{}).(Client)
	return c, ok
}

func enrich(ctx context.Context, e *models.AuditEvent) {
	c, ok := ClientFrom(ctx)
	if !ok {
		return
	}

	if e.IP == "" {
		e.IP = c.IP
	}
	if e.UserAgent == "" {
		e.UserAgent = c.UserAgent
	}
	if e.RequestID == "" {
		e.RequestID = c.RequestID
	}
}
