package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-session-auth/internal/http/handlers"
	"github.com/pribylovaa/go-session-auth/internal/http/middleware"
)

// Service — всё, что REST-слою нужно от сервиса сессий.
type Service interface {
	handlers.Service
	middleware.TokenValidator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	BasePath   string // например, "/api"; если пустой — роуты регистрируются на корне.
	TrustProxy bool   // брать IP клиента из X-Forwarded-For

	// Ready сообщает готовность для /healthz; nil — всегда готов.
	Ready func() bool
	// Metrics обслуживает /metrics; nil — эндпойнт не регистрируется.
	Metrics http.Handler
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Пробы /livez, /healthz и /metrics живут на корне, вне BasePath и без мидлваров.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if opts.Ready == nil || opts.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	if opts.Metrics != nil {
		root.Handle("/metrics", opts.Metrics)
	}

	api := chi.NewRouter()
	registerRoutes(api, handlers.New(svc), middleware.AuthBearer(svc))

	// Middleware (внешний -> внутренний).
	handler := middleware.Chain(api,
		middleware.Recover(),                   // безопасно ловим паники
		middleware.RequestID(),                 // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),        // кладём request-scoped логгер в контекст и логируем
		middleware.ClientInfo(opts.TrustProxy), // ip/user-agent/request id для аудита
		middleware.Timeout(opts.Timeout),       // общий дедлайн запроса
	)

	if opts.BasePath != "" {
		root.Mount(opts.BasePath, handler)
		return root
	}

	root.Mount("/", handler)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, bearer middleware.Middleware) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(bearer)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.Me)
	})
}
