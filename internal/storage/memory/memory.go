// memory — потокобезопасная in-memory реализация storage.AccountStore.
// Используется в тестах и при db.driver=memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

type Storage struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.Account
	byEmail map[string]uuid.UUID
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		byID:    make(map[uuid.UUID]*models.Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Close нужен для соответствия storage.Storage.
func (s *Storage) Close() {}

// Ping всегда успешен, пока жив ctx.
func (s *Storage) Ping(ctx context.Context) error {
	return ctxErr(ctx)
}

// CreateAccount сохраняет копию аккаунта.
func (s *Storage) CreateAccount(ctx context.Context, acc *models.Account) error {
	const op = "storage.memory.CreateAccount"

	if err := ctxErr(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[acc.Email]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if _, ok := s.byID[acc.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	cp := clone(acc, true)
	s.byID[acc.ID] = cp
	s.byEmail[acc.Email] = acc.ID

	return nil
}

// AccountByEmail находит аккаунт по email.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.memory.AccountByEmail"

	if err := ctxErr(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return clone(s.byID[id], false), nil
}

// AccountByID находит аккаунт по ID без хэша refresh-токена.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.byIDLocked(ctx, "storage.memory.AccountByID", id, false)
}

// AccountByIDWithRefreshHash находит аккаунт по ID вместе с хэшем refresh-токена.
func (s *Storage) AccountByIDWithRefreshHash(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.byIDLocked(ctx, "storage.memory.AccountByIDWithRefreshHash", id, true)
}

func (s *Storage) byIDLocked(ctx context.Context, op string, id uuid.UUID, withHash bool) (*models.Account, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return clone(acc, withHash), nil
}

// SetRefreshHash безусловно перезаписывает хэш refresh-токена.
func (s *Storage) SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error {
	const op = "storage.memory.SetRefreshHash"

	if err := ctxErr(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	acc.RefreshTokenHash = copyHash(hash)

	return nil
}

// CompareAndSwapRefreshHash записывает next, если текущий хэш равен expected.
func (s *Storage) CompareAndSwapRefreshHash(ctx context.Context, id uuid.UUID, expected, next *string) (bool, error) {
	const op = "storage.memory.CompareAndSwapRefreshHash"

	if err := ctxErr(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if !storage.SameHash(acc.RefreshTokenHash, expected) {
		return false, nil
	}

	acc.RefreshTokenHash = copyHash(next)

	return true, nil
}

// ctxErr переводит отмену/дедлайн контекста в storage.ErrUnavailable,
// сохраняя исходную причину в цепочке.
func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	return nil
}

func clone(acc *models.Account, withHash bool) *models.Account {
	cp := *acc
	cp.RefreshTokenHash = nil
	if withHash {
		cp.RefreshTokenHash = copyHash(acc.RefreshTokenHash)
	}

	return &cp
}

func copyHash(h *string) *string {
	if h == nil {
		return nil
	}

	v := *h
	return &v
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
