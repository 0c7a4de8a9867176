// Входные/выходные модели REST-слоя /auth/*.
package models

// RegisterRequest — тело POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest — тело POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest — тело POST /auth/refresh.
type RefreshRequest struct {
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

// PublicUser — публичный профиль. Полей password/refreshToken здесь нет и быть не должно.
type PublicUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// TokensResponse — ответ POST /auth/refresh.
type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // секунды
}

// AuthResponse — ответ register/login: токены и профиль.
type AuthResponse struct {
	TokensResponse
	User PublicUser `json:"user"`
}

// MessageResponse — ответ POST /auth/logout.
type MessageResponse struct {
	Message string `json:"message"`
}

// TokensFrom конвертирует пару токенов в REST-представление.
func TokensFrom(tp *TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		ExpiresIn:    int64(tp.ExpiresIn.Seconds()),
	}
}

// AuthFrom собирает ответ register/login.
func AuthFrom(s *Session) AuthResponse {
	return AuthResponse{
		TokensResponse: TokensFrom(s.Tokens),
		User:           s.Account.Public(),
	}
}
