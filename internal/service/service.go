// service содержит протокол сессий: регистрацию, вход, ротацию
// refresh-токена с обнаружением повторного использования и выход.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования, если хранилище потокобезопасно.
//   - У аккаунта не более одного действующего refresh-секрета: каждый выпуск
//     перезаписывает хэш предыдущего.
//   - Предъявление несовпадающего refresh-секрета считается компрометацией:
//     сессия аккаунта немедленно сбрасывается.
//   - Ошибки возвращаются обёрнутыми и далее маппятся транспортом
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/audit"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/security"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

var (
	// ErrValidation — входные данные не прошли проверку; конкретная причина
	// обёрнута рядом (ErrInvalidEmail, ErrWeakPassword, ...).
	// Транспорт: codes.InvalidArgument (HTTP 400).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidEmail — e-mail пустой или некорректного формата.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidName — имя пустое или длиннее допустимого.
	ErrInvalidName = errors.New("invalid name")

	// ErrWeakPassword — пароль короче минимальной длины.
	ErrWeakPassword = errors.New("password is too short")

	// ErrPasswordTooLong — пароль длиннее 72 байт (предел bcrypt).
	ErrPasswordTooLong = errors.New("password is too long")

	// ErrEmailTaken — e-mail уже занят. Транспорт: codes.AlreadyExists (HTTP 409).
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials — пользователь не найден или пароль неверен.
	// Сообщение одинаково для обоих случаев.
	// Транспорт: codes.Unauthenticated (HTTP 401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken — refresh-токен отсутствует, не совпал или повторно использован.
	// Все варианты наружу неразличимы. Транспорт: codes.PermissionDenied (HTTP 403).
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRefreshTokenReused — несовпадение секрета или проигранная гонка ротации;
	// сессия аккаунта уже сброшена. Удовлетворяет errors.Is(err, ErrInvalidRefreshToken).
	ErrRefreshTokenReused = fmt.Errorf("%w: reuse detected", ErrInvalidRefreshToken)

	// ErrInvalidToken — access-токен некорректен (подпись, формат, issuer/audience).
	// Транспорт: codes.Unauthenticated (HTTP 401).
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия access-токена истёк.
	// Транспорт: codes.Unauthenticated (HTTP 401).
	ErrTokenExpired = errors.New("token expired")

	// ErrUnavailable — хранилище недоступно или не ответило вовремя; запрос можно повторить.
	// Транспорт: codes.Unavailable (HTTP 503).
	ErrUnavailable = errors.New("service unavailable")
)

// revokeTimeout ограничивает сброс сессии, если WithStoreTimeout не задан.
const revokeTimeout = 3 * time.Second

// PasswordHasher — адаптивное хэширование паролей и refresh-секретов.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// TokenIssuer — подпись и проверка access-токенов.
type TokenIssuer interface {
	Mint(accountID uuid.UUID, email string, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (security.Identity, error)
}

// Service реализует протокол сессий.
type Service struct {
	store   storage.AccountStore
	cfg     config.AuthConfig
	hasher  PasswordHasher
	issuer  TokenIssuer
	secrets security.SecretSource
	audit   audit.Logger

	storeTimeout time.Duration
	validate     *validator.Validate
	// dummyHash сравнивается при входе с неизвестным e-mail,
	// чтобы время ответа не выдавало наличие аккаунта.
	dummyHash string
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithHasher подменяет хэшер.
func WithHasher(h PasswordHasher) Option { return func(s *Service) { s.hasher = h } }

// WithIssuer подменяет выпуск access-токенов.
func WithIssuer(i TokenIssuer) Option { return func(s *Service) { s.issuer = i } }

// WithSecretSource подменяет источник refresh-секретов (детерминированные тесты).
func WithSecretSource(src security.SecretSource) Option { return func(s *Service) { s.secrets = src } }

// WithAudit задаёт журнал аудита.
func WithAudit(l audit.Logger) Option { return func(s *Service) { s.audit = l } }

// WithStoreTimeout ограничивает каждый вызов хранилища.
func WithStoreTimeout(d time.Duration) Option { return func(s *Service) { s.storeTimeout = d } }

// New создаёт Service. Недостающие зависимости строятся из cfg; ошибка здесь
// (пустой ключ подписи, неверная стоимость bcrypt) фатальна для запуска.
func New(store storage.AccountStore, cfg config.AuthConfig, opts ...Option) (*Service, error) {
	const op = "service.New"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Service{
		store:    store,
		cfg:      cfg,
		audit:    audit.Nop{},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.hasher == nil {
		h, err := security.NewHasher(cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.hasher = h
	}

	if s.issuer == nil {
		iss, err := security.NewIssuer(cfg.JWTSecret, cfg.Issuer, cfg.Audience)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.issuer = iss
	}

	if s.secrets == nil {
		s.secrets = security.NewRandSource()
	}

	dummy, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.dummyHash = dummy

	return s, nil
}
