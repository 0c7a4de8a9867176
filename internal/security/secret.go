package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// SecretSource выдаёт случайные refresh-секреты.
// Подменяется в тестах детерминированной реализацией.
type SecretSource interface {
	RandomSecret(n int) (string, error)
}

// RandSource читает n байт из криптографически стойкого источника
// и кодирует их в hex (2n символов).
type RandSource struct {
	r io.Reader
}

// NewRandSource создаёт источник поверх crypto/rand.
func NewRandSource() *RandSource {
	return &RandSource{r: rand.Reader}
}

// RandomSecret возвращает hex-строку из n случайных байт.
func (s *RandSource) RandomSecret(n int) (string, error) {
	const op = "security.secret.RandomSecret"

	if n <= 0 {
		return "", fmt.Errorf("%s: invalid length %d", op, n)
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return hex.EncodeToString(b), nil
}

// Probe проверяет источник при старте: без рабочего RNG сервис не запускается.
func Probe(src SecretSource, n int) error {
	const op = "security.secret.Probe"

	a, err := src.RandomSecret(n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	b, err := src.RandomSecret(n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if a == b {
		return fmt.Errorf("%s: source returned identical secrets", op)
	}

	return nil
}
