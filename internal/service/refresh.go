package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/audit"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

// Refresh ротирует пару токенов по refresh-секрету.
//
// Поведение:
//   - нет активной сессии (или аккаунта) — отказ без изменений;
//   - секрет не совпал с сохранённым хэшем — повторное использование:
//     сессия сбрасывается, событие critical;
//   - секрет совпал — выпускается новая пара, хэш заменяется. В режиме strict
//     замена условная: проигравший конкурентный запрос тоже сбрасывает сессию.
//
// Снаружи все отказы неразличимы (ErrInvalidRefreshToken).
func (s *Service) Refresh(ctx context.Context, userID, refreshToken string) (*models.TokenPair, error) {
	const op = "service.refresh.Refresh"

	id, err := s.parseRefresh(userID, refreshToken)
	if err != nil {
		s.emit(ctx, audit.TypeTokenRefreshFailed, audit.ReasonValidation, models.SeverityWarning, uuid.Nil, "")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var acc *models.Account
	err = s.withStore(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.store.AccountByIDWithRefreshHash(ctx, id)
		return err
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.emit(ctx, audit.TypeTokenRefreshFailed, audit.ReasonInternal, models.SeverityWarning, id, "")
		return nil, fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	if !acc.HasSession() {
		s.emit(ctx, audit.TypeTokenRefreshFailed, audit.ReasonNoRefreshToken, models.SeverityWarning, id, "")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if !s.hasher.Verify(refreshToken, *acc.RefreshTokenHash) {
		s.revoke(ctx, acc, audit.ReasonTokenReuseAttack, refreshToken)
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenReused)
	}

	tokens, next, err := s.mint(acc)
	if err != nil {
		s.emit(ctx, audit.TypeTokenRefreshFailed, audit.ReasonInternal, models.SeverityWarning, acc.ID, acc.Email)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cfg.RotationMode == config.RotationLastWriteWins {
		err = s.withStore(ctx, func(ctx context.Context) error {
			return s.store.SetRefreshHash(ctx, acc.ID, &next)
		})
	} else {
		var swapped bool
		err = s.withStore(ctx, func(ctx context.Context) error {
			var err error
			swapped, err = s.store.CompareAndSwapRefreshHash(ctx, acc.ID, acc.RefreshTokenHash, &next)
			return err
		})
		if err == nil && !swapped {
			s.revoke(ctx, acc, audit.ReasonRotationRace, refreshToken)
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenReused)
		}
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.emit(ctx, audit.TypeTokenRefreshFailed, audit.ReasonNoRefreshToken, models.SeverityWarning, acc.ID, acc.Email)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		s.emit(ctx, audit.TypeTokenRefreshFailed, audit.ReasonInternal, models.SeverityWarning, acc.ID, acc.Email)
		return nil, fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	s.emit(ctx, audit.TypeTokenRefreshSuccess, "", models.SeverityInfo, acc.ID, acc.Email)

	return tokens, nil
}

// revoke сбрасывает сессию после обнаруженного повторного использования.
// Запись идёт в контексте, отвязанном от отмены запроса: обрыв соединения
// клиентом не должен оставлять сессию живой.
// Ошибка сброса только логируется: клиент в любом случае получает отказ.
func (s *Service) revoke(ctx context.Context, acc *models.Account, reason, presented string) {
	lg := log.From(ctx)

	rctx, cancel := s.detached(ctx)
	defer cancel()

	err := s.store.SetRefreshHash(rctx, acc.ID, nil)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		lg.Error("session_revoke_failed",
			slog.String("account_id", acc.ID.String()),
			slog.String("err", err.Error()),
		)
	}

	lg.Warn("refresh_token_reuse",
		slog.String("account_id", acc.ID.String()),
		slog.String("reason", reason),
		slog.String("token_fp", redact.Fingerprint(presented)),
	)

	s.emit(ctx, audit.TypeTokenRefreshFailed, reason, models.SeverityCritical, acc.ID, acc.Email)
}
