package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

// Интеграционные тесты пакета postgres:
// - поднимают реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяют встроенные миграции через Migrate (goose);
// - проверяют CRUD аккаунтов, сокрытие хэша refresh-токена, CAS и маппинг ошибок.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// startPostgres поднимает временный PostgreSQL, применяет миграции и возвращает
// хранилище и функцию очистки. Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func newAccount(email string) *models.Account {
	now := time.Now().UTC()
	return &models.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Alice",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func strPtr(s string) *string { return &s }

func TestIntegration_CreateAccount_And_Lookups_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	acc := newAccount("alice@example.com")
	require.NoError(t, st.CreateAccount(ctx, acc))

	byEmail, err := st.AccountByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byEmail.ID)
	require.Equal(t, "Alice", byEmail.Name)
	require.Equal(t, "", byEmail.Avatar)
	require.WithinDuration(t, acc.CreatedAt, byEmail.CreatedAt, time.Second)

	byID, err := st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.Email, byID.Email)
	require.Nil(t, byID.RefreshTokenHash)
}

func TestIntegration_CreateAccount_UniqueEmail_CaseInsensitive(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, st.CreateAccount(ctx, newAccount("user@example.com")))

	err := st.CreateAccount(ctx, newAccount("USER@EXAMPLE.COM"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.AccountByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.AccountByIDWithRefreshHash(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, st.SetRefreshHash(ctx, uuid.New(), strPtr("h")), storage.ErrNotFound)

	_, err = st.CompareAndSwapRefreshHash(ctx, uuid.New(), nil, strPtr("h"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RefreshHash_SetReadClear(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	acc := newAccount("alice@example.com")
	require.NoError(t, st.CreateAccount(ctx, acc))

	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, strPtr("h1")))

	full, err := st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, full.RefreshTokenHash)
	require.Equal(t, "h1", *full.RefreshTokenHash)

	plain, err := st.AccountByEmail(ctx, acc.Email)
	require.NoError(t, err)
	require.Nil(t, plain.RefreshTokenHash)

	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, nil))
	full, err = st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	require.False(t, full.HasSession())
}

func TestIntegration_CompareAndSwapRefreshHash(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	acc := newAccount("alice@example.com")
	require.NoError(t, st.CreateAccount(ctx, acc))

	ok, err := st.CompareAndSwapRefreshHash(ctx, acc.ID, nil, strPtr("h1"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.CompareAndSwapRefreshHash(ctx, acc.ID, strPtr("stale"), strPtr("h2"))
	require.NoError(t, err)
	require.False(t, ok)

	// Конкурентные CAS с одинаковым ожиданием: побеждает ровно один.
	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.CompareAndSwapRefreshHash(ctx, acc.ID, strPtr("h1"), strPtr(uuid.NewString()))
			if err != nil {
				t.Errorf("cas: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestIntegration_ContextDeadlineExceeded_MapsToUnavailable(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	err := st.CreateAccount(ctx, newAccount("deadline@example.com"))
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIntegration_AuditEvents_SaveAndList(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	acc := newAccount("alice@example.com")
	require.NoError(t, st.CreateAccount(ctx, acc))

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, st.SaveAuditEvent(ctx, &models.AuditEvent{
		Type: "login_success", Severity: models.SeverityInfo, AccountID: acc.ID,
		Email: "al***@example.com", IP: "127.0.0.1", OccurredAt: base,
	}))
	require.NoError(t, st.SaveAuditEvent(ctx, &models.AuditEvent{
		Type: "token_refresh_failed", Reason: "token_reuse_attack", Severity: models.SeverityCritical,
		AccountID: acc.ID, OccurredAt: base.Add(time.Second),
	}))
	// Событие без аккаунта (account_id = NULL).
	require.NoError(t, st.SaveAuditEvent(ctx, &models.AuditEvent{
		Type: "login_failed", Reason: "user_not_found", Severity: models.SeverityWarning, OccurredAt: base,
	}))

	events := auditEventsByAccount(t, st, acc.ID)
	require.Len(t, events, 2)
	require.Equal(t, "token_refresh_failed", events[0].Type)
	require.Equal(t, models.SeverityCritical, events[0].Severity)
	require.Equal(t, "login_success", events[1].Type)
	require.Equal(t, "127.0.0.1", events[1].IP)

	var orphans int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM audit_events WHERE account_id IS NULL`).Scan(&orphans))
	require.Equal(t, 1, orphans)
}

// auditEventsByAccount читает события аккаунта, новые первыми.
func auditEventsByAccount(t *testing.T, st *Storage, accountID uuid.UUID) []models.AuditEvent {
	t.Helper()

	rows, err := st.db.Query(context.Background(), `
        SELECT type, reason, severity, ip, occurred_at
        FROM audit_events
        WHERE account_id = $1
        ORDER BY occurred_at DESC, id DESC
    `, accountID)
	require.NoError(t, err)
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		e := models.AuditEvent{AccountID: accountID}
		var sev string
		require.NoError(t, rows.Scan(&e.Type, &e.Reason, &sev, &e.IP, &e.OccurredAt))
		e.Severity = models.Severity(sev)
		out = append(out, e)
	}
	require.NoError(t, rows.Err())

	return out
}

func TestIntegration_Ping(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	require.NoError(t, st.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, st.Ping(ctx), storage.ErrUnavailable)
}

// TestIntegration_Migrate_Idempotent — повторный Migrate ничего не ломает.
func TestIntegration_Migrate_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	require.NoError(t, st.Migrate(context.Background()))
}
