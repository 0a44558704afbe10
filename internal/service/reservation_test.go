package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/shop-backend/internal/lib/metrics"
	"github.com/linemk/shop-backend/internal/service"
	"github.com/linemk/shop-backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reservationFixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	products *fakeProductRepo
	cart     *fakeCartRepo
	catalog  *fakeCatalogCache
	svc      service.ReservationService
}

func newReservationFixture(t *testing.T, m *metrics.Metrics, products ...*fakeProduct) *reservationFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newFakeProductRepo()
	for _, p := range products {
		repo.products[p.ID] = product(p.ID, p.Name, p.Price, p.Stock)
	}
	cart := newFakeCartRepo(repo)
	catalog := newFakeCatalogCache()
	return &reservationFixture{
		db:       db,
		mock:     mock,
		products: repo,
		cart:     cart,
		catalog:  catalog,
		svc:      service.NewReservationService(newLogger(), db, repo, cart, catalog, m),
	}
}

type fakeProduct struct {
	ID    int64
	Name  string
	Price string
	Stock int
}

func TestReserve_UntilStockRunsOut(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Headphones", Price: "19.99", Stock: 10})
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	line, err := f.svc.Reserve(ctx, 7, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, line.Item.Quantity)
	assert.Equal(t, 4, line.Product.Stock, "Returned product should reflect the new stock")
	assert.Equal(t, 4, f.products.stock(1))

	// запрошено 5 при остатке 4
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Reserve(ctx, 7, 1, 5)
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	var stockErr *service.InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "Error should carry available stock")
	assert.Equal(t, 4, stockErr.Available)

	assert.Equal(t, 4, f.products.stock(1), "Failed reserve should not touch stock")
	assert.Equal(t, 6, f.cart.quantity(7, 1), "Failed reserve should not touch the cart")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReserve_AddsToExistingLine(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 10})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		_, err := f.svc.Reserve(ctx, 7, 1, 3)
		require.NoError(t, err)
	}

	assert.Equal(t, 6, f.cart.quantity(7, 1))
	assert.Equal(t, 1, f.cart.count(7), "Same product should stay on one cart line")
	assert.Equal(t, 4, f.products.stock(1))
	assert.Equal(t, 2, f.catalog.invalidations, "Each committed reserve should invalidate the catalog")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReserve_ExistingQuantityCountsAgainstStock(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 5})
	f.cart.add(7, 1, 3)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Reserve(context.Background(), 7, 1, 3)
	assert.ErrorIs(t, err, service.ErrInsufficientStock, "3 in cart plus 3 requested exceeds stock of 5")
	assert.Equal(t, 5, f.products.stock(1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReserve_InactiveProduct(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Old", Price: "3.00", Stock: 5})
	f.products.products[1].IsActive = false

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Reserve(context.Background(), 7, 1, 1)
	assert.ErrorIs(t, err, service.ErrProductInactive)
	assert.Equal(t, 0, f.cart.count(7))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReserve_ProductNotFound(t *testing.T) {
	f := newReservationFixture(t, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Reserve(context.Background(), 7, 99, 1)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReserve_InvalidQuantity(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 5})

	// транзакция не открывается
	_, err := f.svc.Reserve(context.Background(), 7, 1, 0)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReserve_LockTimeout(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 5})
	f.products.lockErr = storage.ErrLocked

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Reserve(context.Background(), 7, 1, 1)
	assert.ErrorIs(t, err, service.ErrLockTimeout)
	assert.Equal(t, 5, f.products.stock(1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdjust_Increase(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 7})
	item := f.cart.add(7, 1, 3)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	res, err := f.svc.Adjust(context.Background(), 7, item.ID, 5)
	require.NoError(t, err)
	assert.False(t, res.Removed)
	assert.Equal(t, 5, res.Item.Quantity)
	assert.Equal(t, 5, f.products.stock(1), "Increase by 2 should take 2 from stock")
	assert.Equal(t, 5, f.cart.quantity(7, 1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdjust_Decrease(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 2})
	item := f.cart.add(7, 1, 5)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	res, err := f.svc.Adjust(context.Background(), 7, item.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Item.Quantity)
	assert.Equal(t, 6, f.products.stock(1), "Decrease by 4 should return 4 to stock")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdjust_SameQuantity(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 2})
	item := f.cart.add(7, 1, 5)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Adjust(context.Background(), 7, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, f.products.stock(1))
	assert.Equal(t, 0, f.catalog.invalidations, "Nothing changed, cache should stay")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdjust_Insufficient(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 1})
	item := f.cart.add(7, 1, 1)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Adjust(context.Background(), 7, item.ID, 5)

	var stockErr *service.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 1, f.cart.quantity(7, 1))
	assert.Equal(t, 1, f.products.stock(1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAdjust_BelowOneRemoves(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 2})
	item := f.cart.add(7, 1, 3)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	res, err := f.svc.Adjust(context.Background(), 7, item.ID, 0)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, 0, f.cart.count(7))
	assert.Equal(t, 5, f.products.stock(1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRelease_Twice(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 4})
	item := f.cart.add(7, 1, 6)
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Release(ctx, 7, item.ID))
	assert.Equal(t, 10, f.products.stock(1))

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.Release(ctx, 7, item.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, 10, f.products.stock(1), "Second release should not restore stock again")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRelease_ForeignItem(t *testing.T) {
	f := newReservationFixture(t, nil, &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 4})
	item := f.cart.add(7, 1, 2)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.Release(context.Background(), 8, item.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, 2, f.cart.quantity(7, 1))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReservation_StockConservation(t *testing.T) {
	f := newReservationFixture(t, nil,
		&fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 20},
	)
	ctx := context.Background()
	const initial = 20

	ok := func() { f.mock.ExpectBegin(); f.mock.ExpectCommit() }
	fail := func() { f.mock.ExpectBegin(); f.mock.ExpectRollback() }

	ok()
	l1, err := f.svc.Reserve(ctx, 1, 1, 5)
	require.NoError(t, err)
	ok()
	_, err = f.svc.Reserve(ctx, 2, 1, 7)
	require.NoError(t, err)
	fail()
	_, err = f.svc.Reserve(ctx, 3, 1, 9)
	require.Error(t, err)
	ok()
	_, err = f.svc.Adjust(ctx, 1, l1.Item.ID, 8)
	require.NoError(t, err)
	ok()
	_, err = f.svc.Adjust(ctx, 1, l1.Item.ID, 2)
	require.NoError(t, err)
	ok()
	require.NoError(t, f.svc.Release(ctx, 1, l1.Item.ID))

	inCarts := f.cart.quantity(1, 1) + f.cart.quantity(2, 1) + f.cart.quantity(3, 1)
	assert.Equal(t, initial, f.products.stock(1)+inCarts, "Stock plus reserved quantities should equal initial stock")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReservation_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newReservationFixture(t, metrics.New(reg), &fakeProduct{ID: 1, Name: "Cable", Price: "3.00", Stock: 1})
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Reserve(ctx, 7, 1, 1)
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Reserve(ctx, 7, 1, 1)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "shop_reservation_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "Expected ok and insufficient_stock series")
}
