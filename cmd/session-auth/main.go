package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-session-auth/internal/audit"
	"github.com/pribylovaa/go-session-auth/internal/config"
	sahttp "github.com/pribylovaa/go-session-auth/internal/http"
	"github.com/pribylovaa/go-session-auth/internal/interceptors"
	"github.com/pribylovaa/go-session-auth/internal/security"
	"github.com/pribylovaa/go-session-auth/internal/service"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownTimeout = 10 * time.Second

// Проверка хранилища для /healthz: не чаще раза в readyCacheTTL.
const (
	readyCacheTTL    = 2 * time.Second
	readyPingTimeout = time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен: его отсутствие — не ошибка.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Без рабочего RNG выпускать refresh-секреты нельзя.
	secrets := security.NewRandSource()
	if err := security.Probe(secrets, cfg.Auth.RefreshSecretBytes); err != nil {
		log.Error("rng_probe_failed", slog.String("err", err.Error()))
		return err
	}

	str, err := openStore(rootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer str.Close()

	auditMetrics, err := audit.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	auditLog, closeSinks := openAudit(rootCtx, cfg, log, str, auditMetrics)
	defer closeSinks()

	srvc, err := service.New(str, cfg.Auth,
		service.WithSecretSource(secrets),
		service.WithAudit(auditLog),
		service.WithStoreTimeout(cfg.Timeouts.Store),
	)
	if err != nil {
		log.Error("service_init_failed", slog.String("err", err.Error()))
		return err
	}
	log.Info("service_initialized", slog.String("rotation_mode", cfg.Auth.RotationMode))

	var ready atomic.Bool

	// HTTP: REST /auth/*, пробы и метрики.
	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr: httpAddr,
		Handler: sahttp.NewRouter(srvc, sahttp.Options{
			Logger:  log,
			Timeout: cfg.Timeouts.Service,
			Ready:   sahttp.ReadyCheck(ready.Load, str.Ping, readyCacheTTL, readyPingTimeout),
			Metrics: promhttp.Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		return err
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	// gRPC: служебный порт с health-check и reflection.
	grpc_prometheus.EnableHandlingTimeHistogram()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.WithTimeout(cfg.Timeouts.Service),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecover(log),
			interceptors.StreamLoggingInterceptor(log),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Рефлексия — только в local/dev.
	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	grpcAddr := cfg.GRPC.Addr()
	grpcLn, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
		_ = httpLn.Close()
		return err
	}
	log.Info("grpc_listen_start", slog.String("addr", grpcAddr))

	grpc_prometheus.Register(grpcServer)

	serveErrCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()
	go func() {
		if err := grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	// Сервис готов: health -> SERVING и readiness.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ready.Store(true)
	log.Info("service_ready")

	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("serve_failed", slog.String("err", serveErr.Error()))
	}

	// Переводим в NOT_SERVING и снимаем ready.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	// Дослать накопленные аудит-события до закрытия хранилища.
	if err := auditLog.Close(shutdownCtx); err != nil {
		log.Warn("audit_drain_incomplete", slog.String("err", err.Error()))
	}

	return serveErr
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
