package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// capHandler — тестовый slog.Handler, который запоминает сообщения и атрибуты записей.
type capHandler struct {
	mu      sync.Mutex
	records []capRecord
}

type capRecord struct {
	msg   string
	level slog.Level
	attrs map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, 8)
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.records = append(h.records, capRecord{msg: r.Message, level: r.Level, attrs: out})
	h.mu.Unlock()
	return nil
}

func (h *capHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capHandler) WithGroup(string) slog.Handler      { return h }

func (h *capHandler) find(msg string) (capRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.msg == msg {
			return r, true
		}
	}
	return capRecord{}, false
}

// memSink запоминает события.
type memSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
	err    error
}

func (s *memSink) Name() string { return "mem" }

func (s *memSink) Write(_ context.Context, e *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return s.err
}

func (s *memSink) all() []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEvent(nil), s.events...)
}

// blockingSink держит рассылку до закрытия release.
type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Write(context.Context, *models.AuditEvent) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil
}

type panicSink struct{}

func (panicSink) Name() string                                    { return "panic" }
func (panicSink) Write(context.Context, *models.AuditEvent) error { panic("boom") }

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestDispatcher_DeliversToAllSinks_InOrder(t *testing.T) {
	t.Parallel()

	a, b := &memSink{}, &memSink{}
	d := NewDispatcher(slog.New(&capHandler{}), 8, []Sink{a, b})

	d.Log(context.Background(), models.AuditEvent{Type: TypeLoginSuccess})
	d.Log(context.Background(), models.AuditEvent{Type: TypeLogoutSuccess})
	closeDispatcher(t, d)

	for _, s := range []*memSink{a, b} {
		got := s.all()
		require.Len(t, got, 2)
		require.Equal(t, TypeLoginSuccess, got[0].Type)
		require.Equal(t, TypeLogoutSuccess, got[1].Type)
		require.Equal(t, models.SeverityInfo, got[0].Severity, "severity по умолчанию")
		require.False(t, got[0].OccurredAt.IsZero())
	}
}

func TestDispatcher_EnrichesFromClientContext(t *testing.T) {
	t.Parallel()

	s := &memSink{}
	d := NewDispatcher(nil, 4, []Sink{s})

	ctx := WithClient(context.Background(), Client{IP: "10.0.0.1", UserAgent: "curl/8", RequestID: "rid-1"})
	d.Log(ctx, models.AuditEvent{Type: TypeLoginFailed, IP: "explicit"})
	closeDispatcher(t, d)

	got := s.all()
	require.Len(t, got, 1)
	require.Equal(t, "explicit", got[0].IP, "явное значение не перетирается")
	require.Equal(t, "curl/8", got[0].UserAgent)
	require.Equal(t, "rid-1", got[0].RequestID)
}

// TestDispatcher_SinkErrorIsLoggedNotSurfaced — ошибка приёмника уходит в лог,
// остальные приёмники событие получают.
func TestDispatcher_SinkErrorIsLoggedNotSurfaced(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	failing := &memSink{err: errors.New("db down")}
	ok := &memSink{}
	d := NewDispatcher(slog.New(h), 4, []Sink{failing, panicSink{}, ok})

	d.Log(context.Background(), models.AuditEvent{Type: TypeRegisterFailed})
	closeDispatcher(t, d)

	require.Len(t, ok.all(), 1)

	rec, found := h.find("audit_sink_failed")
	require.True(t, found)
	require.Equal(t, "mem", rec.attrs["sink"])
	require.Equal(t, "db down", rec.attrs["err"])

	_, found = h.find("audit_sink_panic")
	require.True(t, found)
}

// TestDispatcher_DropsWhenQueueFull — Log не блокируется, лишнее отбрасывается.
func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	bs := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	var dropped int
	var mu sync.Mutex
	d := NewDispatcher(slog.New(h), 1, []Sink{bs}, WithDropHook(func() {
		mu.Lock()
		dropped++
		mu.Unlock()
	}))

	d.Log(context.Background(), models.AuditEvent{Type: "first"})
	<-bs.started // воркер занят первым событием

	d.Log(context.Background(), models.AuditEvent{Type: "second"}) // занимает буфер

	done := make(chan struct{})
	go func() {
		d.Log(context.Background(), models.AuditEvent{Type: "third"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log заблокировался на полной очереди")
	}

	mu.Lock()
	require.Equal(t, 1, dropped)
	mu.Unlock()

	rec, found := h.find("audit_dropped")
	require.True(t, found)
	require.Equal(t, "third", rec.attrs["type"])

	close(bs.release)
	closeDispatcher(t, d)
}

func TestDispatcher_LogAfterClose_IsDropped(t *testing.T) {
	t.Parallel()

	s := &memSink{}
	d := NewDispatcher(nil, 4, []Sink{s})
	closeDispatcher(t, d)

	require.NotPanics(t, func() {
		d.Log(context.Background(), models.AuditEvent{Type: TypeLoginSuccess})
	})
	require.Empty(t, s.all())

	// Повторный Close безопасен.
	closeDispatcher(t, d)
}

func TestDispatcher_CloseRespectsContext(t *testing.T) {
	t.Parallel()

	bs := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(nil, 4, []Sink{bs})
	d.Log(context.Background(), models.AuditEvent{Type: "stuck"})
	<-bs.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(bs.release)
}

func TestSlogSink_LevelBySeverity(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	s := NewSlogSink(slog.New(h))
	id := uuid.New()

	require.NoError(t, s.Write(context.Background(), &models.AuditEvent{
		Type: TypeTokenRefreshFailed, Reason: ReasonTokenReuseAttack,
		Severity: models.SeverityCritical, AccountID: id,
	}))
	require.NoError(t, s.Write(context.Background(), &models.AuditEvent{
		Type: TypeLoginFailed, Reason: ReasonUserNotFound, Severity: models.SeverityWarning,
	}))

	rec, ok := h.find(TypeTokenRefreshFailed)
	require.True(t, ok)
	require.Equal(t, slog.LevelError, rec.level)
	require.Equal(t, id.String(), rec.attrs["account_id"])

	rec, ok = h.find(TypeLoginFailed)
	require.True(t, ok)
	require.Equal(t, slog.LevelWarn, rec.level)
	require.NotContains(t, rec.attrs, "account_id")
}

type saverFunc func(ctx context.Context, e *models.AuditEvent) error

func (f saverFunc) SaveAuditEvent(ctx context.Context, e *models.AuditEvent) error { return f(ctx, e) }

func TestStoreSink_DelegatesToStore(t *testing.T) {
	t.Parallel()

	var got *models.AuditEvent
	s := NewStoreSink(saverFunc(func(_ context.Context, e *models.AuditEvent) error {
		got = e
		return nil
	}))

	e := &models.AuditEvent{Type: TypeLogoutSuccess}
	require.NoError(t, s.Write(context.Background(), e))
	require.Same(t, e, got)
}

func TestMetrics_CountsEventsAndDrops(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Write(ctx, &models.AuditEvent{Type: TypeLoginFailed, Reason: ReasonInvalidPassword, Severity: models.SeverityWarning}))
	require.NoError(t, m.Write(ctx, &models.AuditEvent{Type: TypeLoginFailed, Reason: ReasonInvalidPassword, Severity: models.SeverityWarning}))
	m.Dropped()

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(TypeLoginFailed, ReasonInvalidPassword, "warning")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.dropped))

	// Повторная регистрация в том же реестре — ошибка.
	_, err = NewMetrics(reg)
	require.Error(t, err)
}
