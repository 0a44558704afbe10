package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	orders []*models.Order
	err    error
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	f.orders = append(f.orders, order)
	return f.err
}

func setupCheckout(t *testing.T, publisher *fakePublisher) (sqlmock.Sqlmock, *fakeProductRepo, *fakeCartRepo, *fakeOrderRepo, service.CheckoutService) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	products := newFakeProductRepo(product(10, "Cable", "3.00", 4), product(11, "Case", "4.00", 0))
	cart := newFakeCartRepo(products)
	orders := newFakeOrderRepo()
	svc := service.NewCheckoutService(newLogger(), db, cart, orders, publisher, nil)
	return mock, products, cart, orders, svc
}

func TestCheckout_Success(t *testing.T) {
	publisher := &fakePublisher{}
	mock, products, cart, orders, svc := setupCheckout(t, publisher)
	cart.add(5, 10, 1)
	cart.add(5, 11, 2)

	mock.ExpectBegin()
	mock.ExpectCommit()
	order, err := svc.Checkout(context.Background(), 5)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("11.00").Equal(order.Total), "Total should be 1*3.00 + 2*4.00")
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Cable", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[1].Quantity)
	assert.Equal(t, 0, cart.count(5), "Cart should be emptied")
	assert.Len(t, orders.orders[5], 1)
	assert.Len(t, orders.orders[5][0].Items, 2, "Order items should be stored")

	// остатки не меняются при оформлении
	assert.Equal(t, 4, products.stock(10))
	assert.Equal(t, 0, products.stock(11))

	// позиции заказа хранят снимок цены, изменение товара их не трогает
	products.products[10].Price = decimal.RequireFromString("99.00")
	assert.True(t, decimal.RequireFromString("3.00").Equal(orders.orders[5][0].Items[0].UnitPrice))

	require.Len(t, publisher.orders, 1, "Order event should be published")
	assert.Equal(t, order.ID, publisher.orders[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_EmptyCart(t *testing.T) {
	publisher := &fakePublisher{}
	mock, _, _, orders, svc := setupCheckout(t, publisher)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Checkout(context.Background(), 5)
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Empty(t, orders.orders[5])
	assert.Empty(t, publisher.orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_OtherUsersCartUntouched(t *testing.T) {
	mock, _, cart, _, svc := setupCheckout(t, &fakePublisher{})
	cart.add(5, 10, 1)
	cart.add(6, 11, 3)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.Checkout(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.quantity(6, 11))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_PublishFailureIsNotFatal(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	mock, _, cart, _, svc := setupCheckout(t, publisher)
	cart.add(5, 10, 1)

	mock.ExpectBegin()
	mock.ExpectCommit()
	order, err := svc.Checkout(context.Background(), 5)
	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_OrderInsertFails(t *testing.T) {
	publisher := &fakePublisher{}
	mock, _, cart, orders, svc := setupCheckout(t, publisher)
	cart.add(5, 10, 1)
	orders.createErr = errors.New("db error")

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Checkout(context.Background(), 5)
	assert.Error(t, err)
	assert.Equal(t, 1, cart.count(5), "Cart should stay intact when the order is not created")
	assert.Empty(t, publisher.orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// cartWithConcurrentReserve выполняет действие сразу после чтения корзины оформлением,
// как если бы параллельная транзакция успела закоммитить резерв.
type cartWithConcurrentReserve struct {
	*fakeCartRepo
	afterLock func()
}

func (c *cartWithConcurrentReserve) LockLinesByUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	lines, err := c.fakeCartRepo.LockLinesByUserTx(ctx, tx, userID)
	if c.afterLock != nil {
		c.afterLock()
		c.afterLock = nil
	}
	return lines, err
}

func TestCheckout_KeepsItemReservedDuringCheckout(t *testing.T) {
	checkoutDB, checkoutMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { checkoutDB.Close() })
	reserveDB, reserveMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { reserveDB.Close() })

	products := newFakeProductRepo(product(10, "Cable", "3.00", 4), product(11, "Case", "4.00", 5))
	cart := newFakeCartRepo(products)
	orders := newFakeOrderRepo()
	reservations := service.NewReservationService(newLogger(), reserveDB, products, cart, nil, nil)
	cart.add(5, 10, 1)

	ctx := context.Background()
	racing := &cartWithConcurrentReserve{
		fakeCartRepo: cart,
		afterLock: func() {
			_, err := reservations.Reserve(ctx, 5, 11, 2)
			require.NoError(t, err)
		},
	}
	svc := service.NewCheckoutService(newLogger(), checkoutDB, racing, orders, &fakePublisher{}, nil)

	reserveMock.ExpectBegin()
	reserveMock.ExpectCommit()
	checkoutMock.ExpectBegin()
	checkoutMock.ExpectCommit()

	order, err := svc.Checkout(ctx, 5)
	require.NoError(t, err)
	require.Len(t, order.Items, 1, "Only the lines read by checkout should be ordered")
	assert.Equal(t, int64(10), order.Items[0].ProductID)

	assert.Equal(t, 0, cart.quantity(5, 10), "Ordered line should be removed")
	assert.Equal(t, 2, cart.quantity(5, 11), "Line reserved during checkout should stay in the cart")
	assert.Equal(t, 5, products.stock(11)+cart.quantity(5, 11), "Stock plus reserved quantity should equal initial stock")

	assert.NoError(t, checkoutMock.ExpectationsWereMet())
	assert.NoError(t, reserveMock.ExpectationsWereMet())
}
