package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	apierrors "github.com/pribylovaa/go-session-auth/internal/errors"
	"github.com/pribylovaa/go-session-auth/internal/http/middleware"
	"github.com/pribylovaa/go-session-auth/internal/models"
	logctx "github.com/pribylovaa/go-session-auth/internal/pkg/log"
)

// Register — POST /auth/register: 201 и пара токенов с профилем.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteStatus(w, r, codes.InvalidArgument, "invalid request body")
		return
	}

	sess, err := h.svc.Register(r.Context(), in.Email, in.Name, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthFrom(sess))
}

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteStatus(w, r, codes.InvalidArgument, "invalid request body")
		return
	}

	sess, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AuthFrom(sess))
}

// Refresh — POST /auth/refresh (за AuthBearer).
// Тело, которое не разбирается, и чужой userId дают тот же 403,
// что и любой другой отказ refresh; сессия при этом не трогается.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteStatus(w, r, codes.PermissionDenied, "invalid refresh token")
		return
	}

	id, ok := middleware.IdentityFrom(r.Context())
	uid, err := uuid.Parse(strings.TrimSpace(in.UserID))
	if !ok || err != nil || uid != id.AccountID {
		logctx.From(r.Context()).Warn("refresh_subject_mismatch", slog.String("user_id", in.UserID))
		apierrors.WriteStatus(w, r, codes.PermissionDenied, "invalid refresh token")
		return
	}

	tp, err := h.svc.Refresh(r.Context(), in.UserID, in.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokensFrom(tp))
}

// Logout — POST /auth/logout (за AuthBearer).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteStatus(w, r, codes.Unauthenticated, "missing bearer token")
		return
	}

	if err := h.svc.Logout(r.Context(), id.AccountID); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "logged out"})
}

// Me — GET /auth/me (за AuthBearer): публичный профиль владельца токена.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteStatus(w, r, codes.Unauthenticated, "missing bearer token")
		return
	}

	acc, err := h.svc.Me(r.Context(), id.AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, acc.Public())
}

// fail пишет ошибку сервиса; 5xx дополнительно логируются с причиной.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	st := apierrors.Status(err)
	if code := st.Code(); code == codes.Internal || code == codes.Unavailable {
		logctx.From(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
	}

	apierrors.WriteError(w, r, err)
}
