package service

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/security"
)

// registerInput — нормализованные поля регистрации с правилами validator.
type registerInput struct {
	Email    string `validate:"required,email,max=254"`
	Name     string `validate:"required,min=1,max=100"`
	Password string `validate:"required"`
}

// normalizeEmail обрезает пробелы и приводит e-mail к нижнему регистру.
func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// validateRegister проверяет вход регистрации до любых обращений к хранилищу.
func (s *Service) validateRegister(in registerInput) error {
	const op = "service.validate.validateRegister"

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Email":
				return fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrInvalidEmail)
			case "Name":
				return fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrInvalidName)
			case "Password":
				return fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrWeakPassword)
			}
		}

		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}

	return s.validatePassword(in.Password)
}

// validatePassword: не короче PasswordMinLen символов и не длиннее 72 байт.
func (s *Service) validatePassword(pw string) error {
	const op = "service.validate.validatePassword"

	if utf8.RuneCountInString(pw) < s.cfg.PasswordMinLen {
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrWeakPassword)
	}

	if len(pw) > security.MaxSecretBytes {
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrPasswordTooLong)
	}

	return nil
}

// validEmail — проверка формата без раскрытия причины (для входа).
func (s *Service) validEmail(email string) bool {
	return email != "" && s.validate.Var(email, "email,max=254") == nil
}

// parseRefresh проверяет форму refresh-запроса: UUID аккаунта и hex-секрет
// ожидаемой длины. Ошибка формы неотличима снаружи от прочих отказов refresh.
func (s *Service) parseRefresh(userID, secret string) (uuid.UUID, error) {
	const op = "service.validate.parseRefresh"

	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if len(secret) != 2*s.cfg.RefreshSecretBytes {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if _, err := hex.DecodeString(secret); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	return id, nil
}
