package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/audit"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

// Register создаёт аккаунт и сразу открывает для него сессию.
// Все проверки входа выполняются до обращения к хранилищу.
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.Session, error) {
	const op = "service.session.Register"

	in := registerInput{
		Email:    normalizeEmail(email),
		Name:     strings.TrimSpace(name),
		Password: password,
	}

	if err := s.validateRegister(in); err != nil {
		s.emit(ctx, audit.TypeRegisterFailed, audit.ReasonValidation, models.SeverityInfo, uuid.Nil, in.Email)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.emit(ctx, audit.TypeRegisterFailed, audit.ReasonInternal, models.SeverityWarning, uuid.Nil, in.Email)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	acc := &models.Account{
		ID:           uuid.New(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.store.CreateAccount(ctx, acc)
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.emit(ctx, audit.TypeRegisterFailed, audit.ReasonEmailTaken, models.SeverityInfo, uuid.Nil, in.Email)
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		s.emit(ctx, audit.TypeRegisterFailed, audit.ReasonInternal, models.SeverityWarning, uuid.Nil, in.Email)
		return nil, fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	tokens, err := s.openSession(ctx, acc)
	if err != nil {
		s.emit(ctx, audit.TypeRegisterFailed, audit.ReasonInternal, models.SeverityWarning, acc.ID, acc.Email)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, audit.TypeRegisterSuccess, "", models.SeverityInfo, acc.ID, acc.Email)
	log.From(ctx).Info("account_registered",
		slog.String("account_id", acc.ID.String()),
		slog.String("email", redact.Email(acc.Email)),
	)

	return &models.Session{Tokens: tokens, Account: acc}, nil
}

// Login проверяет e-mail и пароль и открывает новую сессию, вытесняя прежнюю.
// Неизвестный e-mail и неверный пароль неразличимы ни по ответу, ни по времени.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "service.session.Login"

	norm := normalizeEmail(email)
	if !s.validEmail(norm) || password == "" {
		s.hasher.Verify(password, s.dummyHash)
		s.emit(ctx, audit.TypeLoginFailed, audit.ReasonValidation, models.SeverityWarning, uuid.Nil, norm)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	var acc *models.Account
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.store.AccountByEmail(ctx, norm)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.emit(ctx, audit.TypeLoginFailed, audit.ReasonUserNotFound, models.SeverityWarning, uuid.Nil, norm)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		s.emit(ctx, audit.TypeLoginFailed, audit.ReasonInternal, models.SeverityWarning, uuid.Nil, norm)
		return nil, fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	if !s.hasher.Verify(password, acc.PasswordHash) {
		s.emit(ctx, audit.TypeLoginFailed, audit.ReasonInvalidPassword, models.SeverityWarning, acc.ID, acc.Email)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	tokens, err := s.openSession(ctx, acc)
	if err != nil {
		s.emit(ctx, audit.TypeLoginFailed, audit.ReasonInternal, models.SeverityWarning, acc.ID, acc.Email)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, audit.TypeLoginSuccess, "", models.SeverityInfo, acc.ID, acc.Email)

	return &models.Session{Tokens: tokens, Account: acc}, nil
}

// Logout сбрасывает сессию аккаунта. Повторный вызов не ошибка.
func (s *Service) Logout(ctx context.Context, accountID uuid.UUID) error {
	const op = "service.session.Logout"

	err := s.withStore(ctx, func(ctx context.Context) error {
		return s.store.SetRefreshHash(ctx, accountID, nil)
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.emit(ctx, audit.TypeLogoutFailed, audit.ReasonInternal, models.SeverityWarning, accountID, "")
		return fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	s.emit(ctx, audit.TypeLogoutSuccess, "", models.SeverityInfo, accountID, "")

	return nil
}

// Me возвращает профиль аккаунта по ID из access-токена.
func (s *Service) Me(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	const op = "service.session.Me"

	var acc *models.Account
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.store.AccountByID(ctx, accountID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	return acc, nil
}

// emit пишет аудит-событие; e-mail маскируется здесь же.
func (s *Service) emit(ctx context.Context, typ, reason string, sev models.Severity, id uuid.UUID, email string) {
	e := models.AuditEvent{
		Type:      typ,
		Reason:    reason,
		Severity:  sev,
		AccountID: id,
	}
	if email != "" {
		e.Email = redact.Email(email)
	}

	s.audit.Log(ctx, e)
}

// withStore выполняет вызов хранилища с отдельным таймаутом.
func (s *Service) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.storeTimeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return fn(ctx)
}

// detached возвращает контекст, который переживает отмену запроса,
// но ограничен storeTimeout (или revokeTimeout, если он не задан).
func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.storeTimeout
	if d <= 0 {
		d = revokeTimeout
	}

	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

// storeErr приводит недоступность хранилища к ErrUnavailable, сохраняя исходную причину.
func (s *Service) storeErr(err error) error {
	if errors.Is(err, storage.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}
