package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"claim-gateway/middleware/claimlimit/application"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", "[1]"))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[1]", v)
}

func TestScopedStore_IsolatesClients(t *testing.T) {
	shared := NewMemoryStore()
	a := NewScopedStore(shared, "10.0.0.1")
	b := NewScopedStore(shared, "10.0.0.2")
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limA := application.ClaimLimiter{Store: a, Now: func() time.Time { return now }}
	limB := application.ClaimLimiter{Store: b, Now: func() time.Time { return now }}

	require.NoError(t, limA.RecordClaim(ctx))
	assert.False(t, limA.IsClaimAllowed(ctx))
	assert.True(t, limB.IsClaimAllowed(ctx))

	_, found, err := shared.Get(ctx, "10.0.0.1:user_claim_timestamps")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestScopedStore_EscapesSeparatorInScope(t *testing.T) {
	shared := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, NewScopedStore(shared, "::1").Set(ctx, "k", "ipv6"))
	require.NoError(t, NewScopedStore(shared, "1").Set(ctx, "k", "header"))
	require.NoError(t, NewScopedStore(shared, "50%3A").Set(ctx, "k", "literal"))
	assert.Equal(t, 3, shared.Len())

	v, found, err := NewScopedStore(shared, "::1").Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ipv6", v)

	_, found, err = shared.Get(ctx, "%3A%3A1:k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisStore_MissingKeyIsNotFound(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, WithKeyPrefix("claims:"))

	mock.ExpectGet("claims:user_claim_timestamps").RedisNil()

	_, found, err := s.Get(context.Background(), "user_claim_timestamps")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, WithKeyTTL(30*24*time.Hour))
	ctx := context.Background()

	mock.ExpectSet("claimlimit:k", "[1,2]", 30*24*time.Hour).SetVal("OK")
	mock.ExpectGet("claimlimit:k").SetVal("[1,2]")

	require.NoError(t, s.Set(ctx, "k", "[1,2]"))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[1,2]", v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LimiterDegradesOnReadErrorAndPropagatesWriteError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db)
	now := time.UnixMilli(1_736_496_000_000)
	lim := application.ClaimLimiter{Store: s, Now: func() time.Time { return now }}
	ctx := context.Background()

	mock.ExpectGet("claimlimit:user_claim_timestamps").SetErr(errors.New("connection refused"))
	assert.True(t, lim.IsClaimAllowed(ctx))

	mock.ExpectGet("claimlimit:user_claim_timestamps").RedisNil()
	mock.ExpectSet("claimlimit:user_claim_timestamps", "[1736496000000]", 0).SetErr(errors.New("READONLY"))
	err := lim.RecordClaim(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_RoundTripAndOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", "[1]"))
	require.NoError(t, s.Set(ctx, "k", "[1,2]"))

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[1,2]", v)
}

func TestSQLiteStore_BacksClaimLimiter(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lim := application.ClaimLimiter{Store: s, Now: func() time.Time { return now }}

	require.NoError(t, lim.RecordClaim(ctx))
	require.NoError(t, lim.RecordClaim(ctx))
	assert.Len(t, lim.History(ctx), 2)
	assert.False(t, lim.IsClaimAllowed(ctx))

	now = now.Add(12 * time.Hour)
	assert.True(t, lim.IsClaimAllowed(ctx))
}
