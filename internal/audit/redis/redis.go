// redis — приёмник аудит-событий в Redis Stream (XADD с ограничением длины).
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

const (
	defaultStream = "session-auth:audit"
	// Примерный предел длины потока (MAXLEN ~).
	defaultMaxLen = 100_000
)

// Sink пишет события в поток stream.
type Sink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если stream пустой — используется "session-auth:audit".
func New(ctx context.Context, redisURL, stream string) (*Sink, error) {
	const op = "audit.redis.New"

	if stream == "" {
		stream = defaultStream
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Sink{rdb: rdb, stream: stream, maxLen: defaultMaxLen}, nil
}

func (s *Sink) Name() string { return "redis" }

// Write добавляет событие в поток полями плоского хэша.
func (s *Sink) Write(ctx context.Context, e *models.AuditEvent) error {
	const op = "audit.redis.Write"

	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: fields(e),
	}).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (s *Sink) Close() error { return s.rdb.Close() }

func fields(e *models.AuditEvent) map[string]any {
	kv := map[string]any{
		"type":        e.Type,
		"severity":    string(e.Severity),
		"occurred_at": strconv.FormatInt(e.OccurredAt.UnixMilli(), 10),
	}

	if e.Reason != "" {
		kv["reason"] = e.Reason
	}
	if e.AccountID != uuid.Nil {
		kv["account_id"] = e.AccountID.String()
	}
	if e.Email != "" {
		kv["email"] = e.Email
	}
	if e.IP != "" {
		kv["ip"] = e.IP
	}
	if e.UserAgent != "" {
		kv["user_agent"] = e.UserAgent
	}
	if e.RequestID != "" {
		kv["request_id"] = e.RequestID
	}

	return kv
}
