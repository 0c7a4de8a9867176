package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seed(t *testing.T, st *Storage, email string) *models.Account {
	t.Helper()
	now := time.Now().UTC()
	acc := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Alice",
		PasswordHash: "pw-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.CreateAccount(context.Background(), acc))
	return acc
}

func TestCreateAccount_And_Lookups_OK(t *testing.T) {
	t.Parallel()

	st := New()
	acc := seed(t, st, "alice@example.com")
	ctx := context.Background()

	byEmail, err := st.AccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byEmail.ID)
	require.Equal(t, "pw-hash", byEmail.PasswordHash)

	byID, err := st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", byID.Name)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	t.Parallel()

	st := New()
	seed(t, st, "alice@example.com")

	err := st.CreateAccount(context.Background(), &models.Account{ID: uuid.New(), Email: "alice@example.com"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestLookups_NotFound(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()

	_, err := st.AccountByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.AccountByIDWithRefreshHash(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, st.SetRefreshHash(ctx, uuid.New(), nil), storage.ErrNotFound)

	_, err = st.CompareAndSwapRefreshHash(ctx, uuid.New(), nil, strPtr("h"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestRefreshHash_HiddenFromRegularReads — хэш виден только через AccountByIDWithRefreshHash.
func TestRefreshHash_HiddenFromRegularReads(t *testing.T) {
	t.Parallel()

	st := New()
	acc := seed(t, st, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, strPtr("h1")))

	plain, err := st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Nil(t, plain.RefreshTokenHash)

	byEmail, err := st.AccountByEmail(ctx, acc.Email)
	require.NoError(t, err)
	require.Nil(t, byEmail.RefreshTokenHash)

	full, err := st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, full.RefreshTokenHash)
	require.Equal(t, "h1", *full.RefreshTokenHash)
}

func TestSetRefreshHash_NilClearsSession(t *testing.T) {
	t.Parallel()

	st := New()
	acc := seed(t, st, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, strPtr("h1")))
	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, nil))

	full, err := st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	require.False(t, full.HasSession())
}

// TestReturnedAccount_IsACopy — изменения возвращённой структуры не влияют на хранилище.
func TestReturnedAccount_IsACopy(t *testing.T) {
	t.Parallel()

	st := New()
	acc := seed(t, st, "alice@example.com")
	ctx := context.Background()
	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, strPtr("h1")))

	full, err := st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	*full.RefreshTokenHash = "tampered"
	full.Email = "evil@example.com"

	again, err := st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "h1", *again.RefreshTokenHash)
	require.Equal(t, "alice@example.com", again.Email)
}

func TestCompareAndSwapRefreshHash(t *testing.T) {
	t.Parallel()

	st := New()
	acc := seed(t, st, "alice@example.com")
	ctx := context.Background()

	// nil -> h1 при ожидаемом nil.
	ok, err := st.CompareAndSwapRefreshHash(ctx, acc.ID, nil, strPtr("h1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Устаревшее ожидание — отказ, значение не меняется.
	ok, err = st.CompareAndSwapRefreshHash(ctx, acc.ID, strPtr("h0"), strPtr("h2"))
	require.NoError(t, err)
	require.False(t, ok)

	full, err := st.AccountByIDWithRefreshHash(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "h1", *full.RefreshTokenHash)

	ok, err = st.CompareAndSwapRefreshHash(ctx, acc.ID, strPtr("h1"), strPtr("h2"))
	require.NoError(t, err)
	require.True(t, ok)
}

// TestCompareAndSwap_ConcurrentSingleWinner — из N конкурентных CAS с одним ожиданием побеждает ровно один.
func TestCompareAndSwap_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	st := New()
	acc := seed(t, st, "alice@example.com")
	ctx := context.Background()
	require.NoError(t, st.SetRefreshHash(ctx, acc.ID, strPtr("h1")))

	const n = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := st.CompareAndSwapRefreshHash(ctx, acc.ID, strPtr("h1"), strPtr(uuid.NewString()))
			if err != nil {
				t.Errorf("cas %d: %v", i, err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}

func TestCanceledContext_ReturnsUnavailable(t *testing.T) {
	t.Parallel()

	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.AccountByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.ErrorIs(t, err, context.Canceled)

	err = st.CreateAccount(ctx, &models.Account{ID: uuid.New(), Email: "x@example.com"})
	require.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestSameHash(t *testing.T) {
	t.Parallel()

	require.True(t, storage.SameHash(nil, nil))
	require.False(t, storage.SameHash(nil, strPtr("a")))
	require.False(t, storage.SameHash(strPtr("a"), nil))
	require.True(t, storage.SameHash(strPtr("a"), strPtr("a")))
	require.False(t, storage.SameHash(strPtr("a"), strPtr("b")))
}

func TestPing(t *testing.T) {
	t.Parallel()

	st := New()
	require.NoError(t, st.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, st.Ping(ctx), storage.ErrUnavailable)
}
