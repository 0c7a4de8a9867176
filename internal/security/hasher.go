// security содержит криптографические примитивы сессий:
// адаптивное хэширование (bcrypt), подпись access-токенов (JWT HS256)
// и генерацию случайных refresh-секретов.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretTooLong — вход длиннее 72 байт, которые учитывает bcrypt.
var ErrSecretTooLong = errors.New("secret exceeds 72 bytes")

// MaxSecretBytes — предел длины входа bcrypt.
const MaxSecretBytes = 72

// Hasher хэширует пароли и refresh-секреты одним и тем же алгоритмом.
// Соль случайна на каждый вызов Hash и встроена в результат.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher с заданной стоимостью bcrypt.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("security.hasher.NewHasher: invalid bcrypt cost %d", cost)
	}

	return &Hasher{cost: cost}, nil
}

// Hash возвращает bcrypt-хэш секрета.
func (h *Hasher) Hash(secret string) (string, error) {
	const op = "security.hasher.Hash"

	if len(secret) > MaxSecretBytes {
		return "", fmt.Errorf("%s: %w", op, ErrSecretTooLong)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сравнивает секрет с хэшем. Любая ошибка разбора хэша — false.
func (h *Hasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
