package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/security"
)

// mint выпускает пару токенов и возвращает bcrypt-хэш нового refresh-секрета.
// В хранилище ничего не пишет.
func (s *Service) mint(acc *models.Account) (*models.TokenPair, string, error) {
	const op = "service.tokens.mint"

	access, exp, err := s.issuer.Mint(acc.ID, acc.Email, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	secret, err := s.secrets.RandomSecret(s.cfg.RefreshSecretBytes)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    secret,
		ExpiresIn:       s.cfg.AccessTokenTTL,
		AccessExpiresAt: exp,
	}, hash, nil
}

// openSession выпускает пару и безусловно заменяет хэш сессии аккаунта.
func (s *Service) openSession(ctx context.Context, acc *models.Account) (*models.TokenPair, error) {
	const op = "service.tokens.openSession"

	tokens, hash, err := s.mint(acc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.store.SetRefreshHash(ctx, acc.ID, &hash)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.storeErr(err))
	}

	return tokens, nil
}

// ValidateAccessToken проверяет access-токен и возвращает владельца.
// Хранилище не опрашивается: выход из системы не отзывает уже выданные access-токены.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (security.Identity, error) {
	const op = "service.tokens.ValidateAccessToken"

	id, err := s.issuer.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return security.Identity{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return security.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return id, nil
}
