package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/campus-market/internal/adapter/storage"
	"github.com/rl1809/campus-market/internal/core/domain"
	"github.com/rl1809/campus-market/internal/core/service"
	"github.com/rl1809/campus-market/internal/port"
)

type orderUsers interface {
	port.UserRepository
	port.OrderRepository
}

type env struct {
	store    *storage.MemoryAdapter
	otp      *service.OTPManager
	carts    *service.CartService
	orders   *service.OrderService
	catalog  *service.CatalogService
	reviews  *service.ReviewService
	profiles *service.ProfileService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := storage.NewMemoryAdapter()
	return newEnvWith(t, store, store)
}

// newEnvWith lets a test swap the order and user repositories for failing ones.
func newEnvWith(t *testing.T, store *storage.MemoryAdapter, orders orderUsers) *env {
	t.Helper()

	otp := service.NewOTPManager(orders, bcrypt.MinCost)
	orderSvc := service.NewOrderService(orders, store, orders, otp, 100)
	t.Cleanup(orderSvc.Close)

	return &env{
		store:    store,
		otp:      otp,
		carts:    service.NewCartService(store, store),
		orders:   orderSvc,
		catalog:  service.NewCatalogService(store, store, store),
		reviews:  service.NewReviewService(store, store),
		profiles: service.NewProfileService(store),
	}
}

func (e *env) member(t *testing.T) domain.Identity {
	t.Helper()
	user := domain.User{
		ID:            gofakeit.UUID(),
		Email:         gofakeit.Username() + gofakeit.DigitN(6) + "@campus.test",
		FirstName:     gofakeit.FirstName(),
		LastName:      gofakeit.LastName(),
		ContactNumber: gofakeit.DigitN(10),
		Cart:          []string{},
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateUser(t.Context(), user))
	return domain.Identity{UserID: user.ID, Email: user.Email}
}

func (e *env) listItem(t *testing.T, seller domain.Identity, name string, price int64) domain.Item {
	t.Helper()
	item, err := e.catalog.CreateItem(t.Context(), seller, service.NewItem{
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Category:    domain.CategoryElectronics,
		Description: gofakeit.ProductDescription(),
	})
	require.NoError(t, err)
	return item
}

// placeOne puts item in buyer's cart and places the order.
func (e *env) placeOne(t *testing.T, buyer domain.Identity, item domain.Item) domain.Order {
	t.Helper()
	ctx := t.Context()
	_, err := e.carts.AddToCart(ctx, buyer, item.ID)
	require.NoError(t, err)
	orders, err := e.orders.PlaceOrder(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	return orders[0]
}

func (e *env) otpFor(t *testing.T, buyer domain.Identity, orderID string) string {
	t.Helper()
	pending, err := e.orders.ListPendingOrders(t.Context(), buyer)
	require.NoError(t, err)
	otp, ok := pending.OTPs[orderID]
	require.True(t, ok, "order %s not pending", orderID)
	return otp
}

var errStorage = errors.New("storage unavailable")

// flakyStore fails selected writes so compensation paths can be exercised.
type flakyStore struct {
	*storage.MemoryAdapter

	failCreateAfter int32 // CreateOrder fails once this many succeeded; <0 never
	created         atomic.Int32
	failSaveCart    bool
	failDelete      bool
}

func (f *flakyStore) CreateOrder(ctx context.Context, order domain.Order) error {
	if f.failCreateAfter >= 0 && f.created.Load() >= f.failCreateAfter {
		return errStorage
	}
	f.created.Add(1)
	return f.MemoryAdapter.CreateOrder(ctx, order)
}

func (f *flakyStore) SaveCart(ctx context.Context, userID string, itemIDs []string) error {
	if f.failSaveCart && len(itemIDs) == 0 {
		return errStorage
	}
	return f.MemoryAdapter.SaveCart(ctx, userID, itemIDs)
}

func (f *flakyStore) DeleteOrder(ctx context.Context, orderID string) (bool, error) {
	if f.failDelete {
		return false, errStorage
	}
	return f.MemoryAdapter.DeleteOrder(ctx, orderID)
}
