package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samandar-uz/fasthost/internal/model"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.RegisterUser(ctx, "  Client@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", store.users[id].Email)
	assert.NotEqual(t, []byte("secret1"), store.users[id].PasswordHash)

	_, err = svc.RegisterUser(ctx, "client@example.com", "another")
	require.ErrorIs(t, err, ErrUserExists)

	got, err := svc.AuthenticateUser(ctx, "CLIENT@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.AuthenticateUser(ctx, "client@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterUserValidation(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.RegisterUser(context.Background(), "not-an-email", "secret1")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.RegisterUser(context.Background(), "Name <a@b.uz>", "secret1")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.RegisterUser(context.Background(), "a@b.uz", "12345")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestGetBalance(t *testing.T) {
	store := newMemStore()
	store.addUser(1, "42.50")
	svc := newTestService(store)

	b, err := svc.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "42.50", b.StringFixed(2))

	_, err = svc.GetBalance(context.Background(), 2)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetOrderChecksOwnership(t *testing.T) {
	store := newMemStore()
	store.addOrder(activeOrder(10, 1, testNow, 30, "1.00"))
	store.addOrder(activeOrder(11, 1, testNow, 30, "1.00"))
	store.addOrder(activeOrder(12, 2, testNow, 30, "1.00"))
	svc := newTestService(store)
	ctx := context.Background()

	o, err := svc.GetOrder(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), o.ID)

	_, err = svc.GetOrder(ctx, 1, 12)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.GetOrder(ctx, 1, 99)
	require.ErrorIs(t, err, ErrOrderNotFound)

	list, err := svc.GetOrdersByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(11), list[0].ID)
}

func TestListTariffsOnlyActive(t *testing.T) {
	store := newMemStore()
	store.addTariff(1, "0.50", true)
	store.addTariff(2, "1.20", false)
	store.addTariff(3, "2.90", true)
	svc := newTestService(store)

	list, err := svc.ListTariffs(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(3), list[1].ID)
}

type stubCatalog struct {
	tariffs []model.Tariff
	calls   int
}

func (c *stubCatalog) ListActiveTariffs(ctx context.Context) ([]model.Tariff, error) {
	c.calls++
	return c.tariffs, nil
}

func TestListTariffsPrefersExplicitCatalog(t *testing.T) {
	store := newMemStore()
	store.addTariff(1, "0.50", true)
	catalog := &stubCatalog{tariffs: []model.Tariff{{ID: 7, Name: "Cached", Active: true}}}
	svc := NewService(store, catalog, zap.NewNop())

	list, err := svc.ListTariffs(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].ID)
	assert.Equal(t, 1, catalog.calls)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrTariffUnavailable, KindNotFound},
		{ErrNotOwner, KindForbidden},
		{ErrNotActive, KindInvalidState},
		{ErrInvalidDuration, KindInvalidInput},
		{ErrInsufficientBalance, KindInsufficientFunds},
		{ErrUserExists, KindConflict},
		{ErrInvalidCredentials, KindUnauthorized},
		{errors.New("connection reset"), KindUnexpected},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
