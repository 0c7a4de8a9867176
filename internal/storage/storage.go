// storage описывает контракт хранилища аккаунтов и общие ошибки адаптеров.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
)

//go:generate mockgen -destination=../mocks/mock_storage.go -package=mocks github.com/pribylovaa/go-session-auth/internal/storage AccountStore

var (
	// ErrNotFound — аккаунт не найден.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id).
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable — хранилище временно недоступно (таймаут, обрыв соединения).
	// Запрос можно повторить.
	ErrUnavailable = errors.New("storage unavailable")
)

// AccountStore выполняет операции над аккаунтами и их единственной сессией.
//
// Все методы учитывают отмену и дедлайн ctx; по их истечении возвращается
// ошибка, удовлетворяющая errors.Is(err, ErrUnavailable).
type AccountStore interface {
	// CreateAccount сохраняет новый аккаунт. Занятый email -> ErrAlreadyExists.
	CreateAccount(ctx context.Context, acc *models.Account) error
	// AccountByEmail находит аккаунт по нормализованному email (без хэша refresh-токена).
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// AccountByID находит аккаунт по ID (без хэша refresh-токена).
	AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// AccountByIDWithRefreshHash находит аккаунт по ID вместе с хэшем refresh-токена.
	AccountByIDWithRefreshHash(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// SetRefreshHash безусловно перезаписывает хэш refresh-токена (nil — сброс сессии).
	SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error
	// CompareAndSwapRefreshHash записывает next, только если текущий хэш равен expected.
	// Возвращает false, если значение уже изменилось.
	CompareAndSwapRefreshHash(ctx context.Context, id uuid.UUID, expected, next *string) (bool, error)
}

// Storage — хранилище целиком: аккаунты, проверка доступности и закрытие ресурсов.
type Storage interface {
	AccountStore
	Ping(ctx context.Context) error
	Close()
}

// SameHash сравнивает два nullable-хэша.
func SameHash(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
