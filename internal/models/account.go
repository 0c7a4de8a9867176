package models

import (
	"time"

	"github.com/google/uuid"
)

// Account — учётная запись пользователя.
//
// RefreshTokenHash — bcrypt-хэш текущего refresh-секрета. nil означает
// отсутствие активной сессии; ненулевое значение и есть единственная сессия аккаунта.
// Поле заполняется только при чтении через AccountByIDWithRefreshHash.
type Account struct {
	ID               uuid.UUID
	Email            string
	Name             string
	Avatar           string
	PasswordHash     string
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasSession сообщает, есть ли у аккаунта активная сессия.
func (a *Account) HasSession() bool {
	return a != nil && a.RefreshTokenHash != nil
}

// Public возвращает профиль для ответа клиенту: без хэшей и секретов.
func (a *Account) Public() PublicUser {
	return PublicUser{
		ID:     a.ID.String(),
		Email:  a.Email,
		Name:   a.Name,
		Avatar: a.Avatar,
	}
}
