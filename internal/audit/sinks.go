package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// SlogSink пишет событие строкой лога; уровень зависит от severity.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	if log == nil {
		log = slog.Default()
	}

	return &SlogSink{log: log.With(slog.String("component", "audit"))}
}

func (s *SlogSink) Name() string { return "slog" }

func (s *SlogSink) Write(ctx context.Context, e *models.AuditEvent) error {
	level := slog.LevelInfo
	switch e.Severity {
	case models.SeverityWarning:
		level = slog.LevelWarn
	case models.SeverityCritical:
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("reason", e.Reason),
		slog.String("severity", string(e.Severity)),
		slog.String("email", e.Email),
		slog.String("ip", e.IP),
		slog.String("user_agent", e.UserAgent),
		slog.String("request_id", e.RequestID),
		slog.Time("occurred_at", e.OccurredAt),
	}
	if e.AccountID != uuid.Nil {
		attrs = append(attrs, slog.String("account_id", e.AccountID.String()))
	}

	s.log.LogAttrs(ctx, level, e.Type, attrs...)
	return nil
}

// EventSaver — хранилище, умеющее сохранять аудит-события (см. storage/postgres).
type EventSaver interface {
	SaveAuditEvent(ctx context.Context, e *models.AuditEvent) error
}

// StoreSink сохраняет события в хранилище.
type StoreSink struct {
	store EventSaver
}

func NewStoreSink(store EventSaver) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Write(ctx context.Context, e *models.AuditEvent) error {
	return s.store.SaveAuditEvent(ctx, e)
}

// Metrics — счётчики журнала для Prometheus.
type Metrics struct {
	events  *prometheus.CounterVec
	dropped prometheus.Counter
}

// NewMetrics регистрирует счётчики в reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session_auth",
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Audit events by type, reason and severity.",
		}, []string{"type", "reason", "severity"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "session_auth",
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit events dropped because the queue was full or closed.",
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.dropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) Name() string { return "metrics" }

func (m *Metrics) Write(_ context.Context, e *models.AuditEvent) error {
	m.events.WithLabelValues(e.Type, e.Reason, string(e.Severity)).Inc()
	return nil
}

// Dropped — хук для WithDropHook.
func (m *Metrics) Dropped() {
	m.dropped.Inc()
}

var (
	_ Sink = (*SlogSink)(nil)
	_ Sink = (*StoreSink)(nil)
	_ Sink = (*Metrics)(nil)
)
