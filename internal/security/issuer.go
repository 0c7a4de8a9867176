package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken — подпись, формат, issuer/audience или метод не прошли проверку.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия access-токена истёк.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingKey — ключ подписи не задан. Фатально на старте.
	ErrMissingKey = errors.New("signing key is empty")
)

// Claims — полезная нагрузка access-токена: sub (ID аккаунта) и email.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity — результат проверки access-токена.
type Identity struct {
	AccountID uuid.UUID
	Email     string
}

// Issuer подписывает и проверяет access-токены (HS256).
// Состояния нет: валидность определяется только подписью и сроком.
type Issuer struct {
	key      []byte
	issuer   string
	audience []string
	leeway   time.Duration
	now      func() time.Time
}

// NewIssuer создаёт Issuer. Пустой ключ — ErrMissingKey.
func NewIssuer(key, issuer string, audience []string) (*Issuer, error) {
	if key == "" {
		return nil, fmt.Errorf("security.issuer.NewIssuer: %w", ErrMissingKey)
	}

	return &Issuer{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		leeway:   5 * time.Second,
		now:      time.Now,
	}, nil
}

// Mint подписывает токен для аккаунта со сроком жизни ttl.
func (i *Issuer) Mint(accountID uuid.UUID, email string, ttl time.Duration) (string, time.Time, error) {
	const op = "security.issuer.Mint"

	now := i.now().UTC()
	exp := now.Add(ttl)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings(i.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// Verify проверяет подпись, срок, issuer и audience и возвращает идентичность.
func (i *Issuer) Verify(tokenStr string) (Identity, error) {
	const op = "security.issuer.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(i.leeway),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if len(i.audience) > 0 {
		opts = append(opts, jwt.WithAudience(i.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return Identity{AccountID: id, Email: claims.Email}, nil
}
