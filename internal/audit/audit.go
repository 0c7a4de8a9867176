// audit — асинхронный журнал событий безопасности.
//
// Событие ставится в буферизованную очередь и рассылается по приёмникам (Sink)
// одной фоновой горутиной. Запись в журнал никогда не блокирует и не ломает
// основную операцию: при переполненной очереди событие отбрасывается,
// ошибки приёмников только логируются.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// Типы событий.
const (
	TypeRegisterSuccess     = "register_success"
	TypeRegisterFailed      = "register_failed"
	TypeLoginSuccess        = "login_success"
	TypeLoginFailed         = "login_failed"
	TypeTokenRefreshSuccess = "token_refresh_success"
	TypeTokenRefreshFailed  = "token_refresh_failed"
	TypeLogoutSuccess       = "logout_success"
	TypeLogoutFailed        = "logout_failed"
)

// Причины неуспеха.
const (
	ReasonUserNotFound     = "user_not_found"
	ReasonInvalidPassword  = "invalid_password"
	ReasonNoRefreshToken   = "no_refresh_token"
	ReasonTokenReuseAttack = "token_reuse_attack"
	ReasonRotationRace     = "rotation_race"
	ReasonEmailTaken       = "email_taken"
	ReasonValidation       = "validation"
	ReasonInternal         = "internal"
)

// sinkTimeout ограничивает запись события в один приёмник.
const sinkTimeout = 2 * time.Second

// Logger — то, что нужно сервису от журнала.
type Logger interface {
	Log(ctx context.Context, e models.AuditEvent)
}

// Sink — приёмник событий (лог, БД, поток, метрики).
type Sink interface {
	Name() string
	Write(ctx context.Context, e *models.AuditEvent) error
}

// Dispatcher рассылает события по приёмникам из фоновой горутины.
type Dispatcher struct {
	log   *slog.Logger
	sinks []Sink
	queue chan models.AuditEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	onDrop func()
	now    func() time.Time
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithDropHook вызывается на каждое отброшенное событие (например, метрика).
func WithDropHook(fn func()) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// NewDispatcher создаёт журнал и запускает фоновую рассылку.
func NewDispatcher(log *slog.Logger, buffer int, sinks []Sink, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		log:    log,
		sinks:  sinks,
		queue:  make(chan models.AuditEvent, buffer),
		done:   make(chan struct{}),
		onDrop: func() {},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.run()

	return d
}

// Log ставит событие в очередь. Не блокирует: при переполнении событие теряется.
// Данные клиента (IP, User-Agent, request id) берутся из ctx, если не заданы.
func (d *Dispatcher) Log(ctx context.Context, e models.AuditEvent) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = d.now().UTC()
	}
	if e.Severity == "" {
		e.Severity = models.SeverityInfo
	}
	enrich(ctx, &e)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "closed")
		return
	}

	select {
	case d.queue <- e:
	default:
		d.drop(e, "queue_full")
	}
}

func (d *Dispatcher) drop(e models.AuditEvent, why string) {
	d.onDrop()
	d.log.Warn("audit_dropped",
		slog.String("type", e.Type),
		slog.String("reason", e.Reason),
		slog.String("why", why),
	)
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for e := range d.queue {
		for _, s := range d.sinks {
			d.write(s, e)
		}
	}
}

// write пишет событие в один приёмник; паника приёмника не роняет рассылку.
func (d *Dispatcher) write(s Sink, e models.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("audit_sink_panic",
				slog.String("sink", s.Name()),
				slog.Any("panic", r),
			)
		}
	}()

	if err := s.Write(ctx, &e); err != nil {
		d.log.Error("audit_sink_failed",
			slog.String("sink", s.Name()),
			slog.String("type", e.Type),
			slog.String("err", err.Error()),
		)
	}
}

// Close перестаёт принимать события и дожидается рассылки очереди
// либо отмены ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Nop — журнал, который ничего не делает.
type Nop struct{}

func (Nop) Log(context.Context, models.AuditEvent) {}

var (
	_ Logger = (*Dispatcher)(nil)
	_ Logger = Nop{}
)
