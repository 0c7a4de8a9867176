package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// CreateAccount создает новый аккаунт в БД.
func (s *Storage) CreateAccount(ctx context.Context, acc *models.Account) error {
	const op = "storage.postgres.CreateAccount"

	query := `
        INSERT INTO accounts(id, email, name, avatar, password_hash, refresh_token_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := s.db.Exec(ctx, query,
		acc.ID,
		acc.Email,
		acc.Name,
		acc.Avatar,
		acc.PasswordHash,
		acc.RefreshTokenHash,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		return mapError(op, err)
	}

	return nil
}

// AccountByEmail находит аккаунт по email (сравнение регистронезависимое, CITEXT).
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `
        SELECT id, email, name, avatar, password_hash, created_at, updated_at
        FROM accounts
        WHERE email = $1
    `

	acc, err := scanAccount(s.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapError(op, err)
	}

	return acc, nil
}

// AccountByID находит аккаунт по ID без хэша refresh-токена.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.postgres.AccountByID"

	query := `
        SELECT id, email, name, avatar, password_hash, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `

	acc, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(op, err)
	}

	return acc, nil
}

// AccountByIDWithRefreshHash находит аккаунт по ID вместе с хэшем refresh-токена.
func (s *Storage) AccountByIDWithRefreshHash(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.postgres.AccountByIDWithRefreshHash"

	query := `
        SELECT id, email, name, avatar, password_hash, refresh_token_hash, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `

	var acc models.Account
	err := s.db.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Email,
		&acc.Name,
		&acc.Avatar,
		&acc.PasswordHash,
		&acc.RefreshTokenHash,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(op, err)
	}

	return &acc, nil
}

// SetRefreshHash безусловно перезаписывает хэш refresh-токена (nil -> NULL).
func (s *Storage) SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error {
	const op = "storage.postgres.SetRefreshHash"

	query := `
        UPDATE accounts
        SET refresh_token_hash = $2, updated_at = now()
        WHERE id = $1
    `

	tag, err := s.db.Exec(ctx, query, id, hash)
	if err != nil {
		return mapError(op, err)
	}

	if tag.RowsAffected() == 0 {
		return mapError(op, pgx.ErrNoRows)
	}

	return nil
}

// CompareAndSwapRefreshHash записывает next, только если текущий хэш равен expected.
// Сравнение и запись выполняются одним UPDATE, поэтому атомарны для
// конкурентных вызовов по одному аккаунту. IS NOT DISTINCT FROM корректно
// сравнивает NULL.
//
// Возвращает:
//
//	(true, nil)  — значение заменено;
//	(false, nil) — аккаунт есть, но хэш уже другой;
//	(false, ErrNotFound) — аккаунта нет.
func (s *Storage) CompareAndSwapRefreshHash(ctx context.Context, id uuid.UUID, expected, next *string) (bool, error) {
	const op = "storage.postgres.CompareAndSwapRefreshHash"

	const upd = `
        UPDATE accounts
        SET refresh_token_hash = $3, updated_at = now()
        WHERE id = $1 AND refresh_token_hash IS NOT DISTINCT FROM $2
    `

	tag, err := s.db.Exec(ctx, upd, id, expected, next)
	if err != nil {
		return false, mapError(op, err)
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	const sel = `SELECT 1 FROM accounts WHERE id = $1`

	var one int
	if err := s.db.QueryRow(ctx, sel, id).Scan(&one); err != nil {
		return false, mapError(op, err)
	}

	return false, nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var acc models.Account
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.Name,
		&acc.Avatar,
		&acc.PasswordHash,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &acc, nil
}
