package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func TestIdempotencyStore_ReserveReplayAndMismatch(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)

	created, err := repo.CreateProcessing(ctx, " buyer-1:key-1 ", "hash-a", ttl)
	require.NoError(t, err)
	require.Equal(t, "buyer-1:key-1", created.Key, "keys are trimmed")
	require.Equal(t, domain.IdempotencyStatusProcessing, created.Status)
	require.True(t, created.TTLAt.Equal(ttl))

	_, err = repo.CreateProcessing(ctx, "buyer-1:key-1", "hash-a", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)

	existing, err := repo.CreateProcessing(ctx, "buyer-1:key-1", "hash-b", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
	require.Equal(t, "hash-a", existing.RequestHash)
}

func TestIdempotencyStore_RejectsBlankInput(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()

	_, err := repo.CreateProcessing(ctx, "  ", "hash", time.Time{})
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)
	_, err = repo.CreateProcessing(ctx, "key", "", time.Time{})
	require.ErrorIs(t, err, domain.ErrIdempotencyRequestHashRequired)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
	require.ErrorIs(t, repo.MarkDone(ctx, "missing", nil), domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyStore_ExpiredKeyCanBeReserved(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()

	_, err := repo.CreateProcessing(ctx, "key", "hash-a", time.Now().Add(-time.Second))
	require.NoError(t, err)
	_, err = repo.Get(ctx, "key")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound, "expired keys are invisible")

	rec, err := repo.CreateProcessing(ctx, "key", "hash-b", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "hash-b", rec.RequestHash)
}

func TestIdempotencyStore_ExpiryFollowsInjectedClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewIdempotencyRepository()
	repo.SetClock(func() time.Time { return now })

	_, err := repo.CreateProcessing(ctx, "key", "hash", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Get(ctx, "key")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = repo.Get(ctx, "key")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyStore_DefaultTTL(t *testing.T) {
	repo := memory.NewIdempotencyRepository()

	rec, err := repo.CreateProcessing(context.Background(), "key", "hash", time.Time{})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), rec.TTLAt, time.Minute)
}

func TestIdempotencyStore_StoredResponseIsCopied(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()

	_, err := repo.CreateProcessing(ctx, "key", "hash", time.Now().Add(time.Hour))
	require.NoError(t, err)

	body := []byte(`{"ok":true}`)
	require.NoError(t, repo.MarkDone(ctx, "key", body))
	body[0] = 'X'

	got, err := repo.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, got.Status)
	require.JSONEq(t, `{"ok":true}`, string(got.ResponseBody))

	require.NoError(t, repo.MarkFailed(ctx, "key", []byte(`{"code":"Internal"}`)))
	got, err = repo.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusFailed, got.Status)
}

func TestIdempotencyStore_DeleteExpiredOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	now := time.Now().UTC()

	for key, ttl := range map[string]time.Time{
		"oldest": now.Add(-2 * time.Hour),
		"older":  now.Add(-time.Hour),
		"active": now.Add(time.Hour),
	} {
		_, err := repo.CreateProcessing(ctx, key, "hash", ttl)
		require.NoError(t, err)
	}

	removed, err := repo.DeleteExpired(ctx, now, 1)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	removed, err = repo.DeleteExpired(ctx, now, 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, err = repo.Get(ctx, "active")
	require.NoError(t, err)
}
