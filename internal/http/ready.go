package http

import (
	"context"
	"sync"
	"time"
)

// ReadyCheck собирает функцию для Options.Ready: сервис готов, если запуск
// завершён (started) и хранилище отвечает на ping. Результат ping кэшируется
// на ttl; один вызов ping ограничен timeout.
func ReadyCheck(started func() bool, ping func(context.Context) error, ttl, timeout time.Duration) func() bool {
	var (
		mu      sync.Mutex
		checked time.Time
		ok      bool
	)

	return func() bool {
		if !started() {
			return false
		}

		mu.Lock()
		defer mu.Unlock()

		if !checked.IsZero() && time.Since(checked) < ttl {
			return ok
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		ok = ping(ctx) == nil
		checked = time.Now()

		return ok
	}
}
