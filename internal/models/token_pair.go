package models

import "time"

// TokenPair — пара токенов, выдаваемая при регистрации, входе и refresh.
//
// Описание:
//   - AccessToken — короткоживущий JWT (claims sub, email);
//   - RefreshToken — случайный hex-секрет, который клиент предъявляет для
//     ротации; на сервере хранится только его bcrypt-хэш;
//   - ExpiresIn — время жизни access-токена;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	ExpiresIn       time.Duration
	AccessExpiresAt time.Time
}

// Session — результат register/login: пара токенов и аккаунт-владелец.
type Session struct {
	Tokens  *TokenPair
	Account *Account
}
