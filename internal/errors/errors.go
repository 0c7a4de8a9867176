// errors стандартизирует ответы об ошибках транспортного слоя.
// На вход он принимает ошибку сервиса (или готовый gRPC-статус),
// а на выход даёт:
//   - gRPC-статус с безопасным сообщением (Status);
//   - корректный HTTP-статус и JSON-конверт (ToHTTP, WriteError).
//
// Таксономия ошибок сервиса сначала сводится к codes.Code, затем код
// переводится в HTTP через baseFromGRPC — одна таблица на оба транспорта.
//
// Все отказы refresh (нет сессии, несовпадение, повтор, гонка ротации)
// получают одно сообщение "invalid refresh token".
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-session-auth/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат ошибки для клиента.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// validationMessages — безопасные тексты конкретных нарушений валидации.
var validationMessages = []error{
	service.ErrInvalidEmail,
	service.ErrInvalidName,
	service.ErrWeakPassword,
	service.ErrPasswordTooLong,
}

// Status сводит ошибку сервиса к gRPC-статусу:
//   - ErrValidation -> InvalidArgument (с текстом конкретного нарушения);
//   - ErrEmailTaken -> AlreadyExists;
//   - ErrInvalidCredentials, ErrInvalidToken, ErrTokenExpired -> Unauthenticated;
//   - ErrInvalidRefreshToken (включая ErrRefreshTokenReused) -> PermissionDenied;
//   - ErrUnavailable -> Unavailable;
//   - context.Canceled / DeadlineExceeded -> Canceled / DeadlineExceeded;
//   - готовый gRPC-статус возвращается как есть;
//   - прочее -> Internal без деталей.
func Status(err error) *status.Status {
	switch {
	case err == nil:
		return status.New(codes.Internal, "internal error")
	case stderrors.Is(err, service.ErrValidation):
		for _, v := range validationMessages {
			if stderrors.Is(err, v) {
				return status.New(codes.InvalidArgument, v.Error())
			}
		}
		return status.New(codes.InvalidArgument, "invalid argument")
	case stderrors.Is(err, service.ErrEmailTaken):
		return status.New(codes.AlreadyExists, service.ErrEmailTaken.Error())
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return status.New(codes.Unauthenticated, service.ErrInvalidCredentials.Error())
	case stderrors.Is(err, service.ErrTokenExpired):
		return status.New(codes.Unauthenticated, service.ErrTokenExpired.Error())
	case stderrors.Is(err, service.ErrInvalidToken):
		return status.New(codes.Unauthenticated, service.ErrInvalidToken.Error())
	case stderrors.Is(err, service.ErrInvalidRefreshToken):
		return status.New(codes.PermissionDenied, service.ErrInvalidRefreshToken.Error())
	case stderrors.Is(err, service.ErrUnavailable):
		return status.New(codes.Unavailable, service.ErrUnavailable.Error())
	case stderrors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "canceled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "deadline exceeded")
	}

	if st, ok := status.FromError(err); ok {
		return st
	}

	return status.New(codes.Internal, "internal error")
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - иначе код и сообщение берутся из Status(); сообщения статусов
//     формируются только этим пакетом и транспортом, детали причин в них не попадают.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error: APIError{
				Code:    "internal",
				Message: "internal error",
			},
		}
	}

	st := Status(err)

	httpStatus, code, msg := baseFromGRPC(st.Code())
	if st.Message() != "" {
		msg = st.Message()
	}

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteStatus пишет ошибку транспортного слоя (битый JSON, нет токена и т.п.)
// с заданным кодом и сообщением.
func WriteStatus(w http.ResponseWriter, r *http.Request, c codes.Code, msg string) {
	WriteError(w, r, status.Error(c, msg))
}

// baseFromGRPC — базовый маппинг gRPC -> HTTP/код/сообщение:
//   - InvalidArgument (битый JSON, e-mail, имя, пароль) -> 400
//   - NotFound -> 404
//   - AlreadyExists (e-mail занят) -> 409
//   - Unauthenticated (неверные учётные данные, access-токен) -> 401
//   - PermissionDenied (любая проблема refresh-токена) -> 403
//   - ResourceExhausted -> 429 (зарезервировано под rate limit)
//   - Canceled -> 499 (клиент закрыл соединение)
//   - DeadlineExceeded -> 504 (таймаут обработки)
//   - Unavailable -> 503 (хранилище недоступно, можно повторить)
//   - Unimplemented -> 501
//   - прочее -> 500/internal
func baseFromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.AlreadyExists:
		return http.StatusConflict, "already_exists", "already exists"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
