package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// maxBodyBytes — предел тела запроса.
const maxBodyBytes = 1 << 20

// Service — операции протокола сессий, нужные REST-слою.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, userID, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accountID uuid.UUID) error
	Me(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
}

// Handlers агрегирует зависимости REST-эндпойнтов.
type Handlers struct {
	svc Service
}

func New(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля, лишние данные
// после объекта и тело больше maxBodyBytes отклоняются.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}

	return nil
}
