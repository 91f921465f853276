package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/campus-market/internal/adapter/storage"
	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
)

func TestOTPGenerate(t *testing.T) {
	m := service.NewOTPManager(storage.NewMemoryAdapter(), bcrypt.MinCost)

	seen := make(map[string]struct{})
	for range 200 {
		otp, err := m.Generate()
		require.NoError(t, err)
		require.Regexp(t, `^[1-9][0-9]{5}$`, otp)
		seen[otp] = struct{}{}
	}
	assert.Greater(t, len(seen), 190, "codes are random")
}

func TestOTPHashMatches(t *testing.T) {
	m := service.NewOTPManager(storage.NewMemoryAdapter(), bcrypt.MinCost)

	hash, err := m.Hash("482193")
	require.NoError(t, err)
	assert.NotContains(t, string(hash), "482193")

	ok, err := m.Matches(hash, "482193")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(hash, "482194")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Matches(nil, "482193")
	require.NoError(t, err)
	assert.False(t, ok, "no hash never matches")
}

func TestOTPIssue(t *testing.T) {
	store := storage.NewMemoryAdapter()
	m := service.NewOTPManager(store, 0) // falls back to the default cost
	ctx := t.Context()

	orders := make([]domain.Order, 6)
	for i := range orders {
		orders[i] = domain.Order{ID: string(rune('a' + i)), Status: domain.OrderStatusPending}
		require.NoError(t, store.CreateOrder(ctx, orders[i]))
	}

	otps, err := m.Issue(ctx, orders)
	require.NoError(t, err)
	require.Len(t, otps, len(orders))

	for _, order := range orders {
		stored, err := store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		cost, err := bcrypt.Cost(stored.OTPHash)
		require.NoError(t, err)
		assert.Equal(t, service.DefaultOTPCost, cost)

		ok, err := m.Matches(stored.OTPHash, otps[order.ID])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err = m.Issue(ctx, []domain.Order{{ID: "missing"}})
	require.ErrorIs(t, err, storage.ErrNoSuchOrder)
}
