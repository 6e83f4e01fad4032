package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront-service/internal/dto"
	"storefront-service/internal/events"
	"storefront-service/internal/model"
	"storefront-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type orderFixture struct {
	store *memory.Store
	svc   *OrderService
	pub   *recordingPublisher
	buyer *model.User
	admin *model.User
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := NewOrderService(OrderServiceDeps{
		Orders:    store.Orders(),
		Products:  store.Products(),
		Users:     store.Users(),
		Tx:        store,
		Publisher: pub,
		Logger:    zaptest.NewLogger(t),
	})

	ctx := context.Background()
	buyer := &model.User{Username: "buyer", Email: "buyer@example.com"}
	admin := &model.User{Username: "admin", Email: "admin@example.com", IsAdmin: true}
	require.NoError(t, store.Users().Create(ctx, buyer))
	require.NoError(t, store.Users().Create(ctx, admin))

	return &orderFixture{store: store, svc: svc, pub: pub, buyer: buyer, admin: admin}
}

func (f *orderFixture) addProduct(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:         name,
		Price:        model.MustAmount(price),
		Quantity:     stock,
		CountInStock: stock,
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *orderFixture) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.CountInStock
}

func cart(lines ...dto.OrderItemRequest) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		OrderItems: lines,
		ShippingAddress: dto.ShippingAddressDTO{
			Address: "Av. Siempre Viva 742", City: "Springfield", PostalCode: "5000", Country: "AR",
		},
		PaymentMethod: "PayPal",
	}
}

func line(p *model.Product, qty int) dto.OrderItemRequest {
	return dto.OrderItemRequest{ProductID: p.ID.Hex(), Qty: qty}
}

var paypalResult = model.PaymentResult{
	ID:           "PAY-1",
	Status:       "COMPLETED",
	UpdateTime:   "2026-10-15T10:00:00Z",
	EmailAddress: "buyer@example.com",
}

func TestPlaceOrder_PricesFromCatalog(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)

	req := cart(line(p, 4))
	order, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID, req)
	require.NoError(t, err)

	assert.False(t, order.ID.IsZero())
	assert.Equal(t, f.buyer.ID, order.UserID)
	assert.Equal(t, "120.00", order.ItemsPrice.String())
	assert.Equal(t, "0.00", order.ShippingPrice.String())
	assert.Equal(t, "18.00", order.TaxPrice.String())
	assert.Equal(t, "138.00", order.TotalPrice.String())
	assert.False(t, order.IsPaid)
	assert.False(t, order.IsDelivered)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, "Mouse", order.OrderItems[0].Name)
	assert.Equal(t, "30.00", order.OrderItems[0].Price.String())

	// crear no toca el stock
	assert.Equal(t, 10, f.stock(t, p.ID))
	assert.Equal(t, []string{events.OrderPlaced}, f.pub.types())
}

func TestPlaceOrder_ChargesShippingUnderThreshold(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Cable", "10.00", 5)

	order, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID, cart(line(p, 2)))
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.ItemsPrice.String())
	assert.Equal(t, "10.00", order.ShippingPrice.String())
	assert.Equal(t, "3.00", order.TaxPrice.String())
	assert.Equal(t, "33.00", order.TotalPrice.String())
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID, cart())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "No order items", verr.Message)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)
	missing := primitive.NewObjectID().Hex()

	_, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID,
		cart(line(p, 1), dto.OrderItemRequest{ProductID: missing, Qty: 1}))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Product", nf.Resource)
	assert.Equal(t, missing, nf.ID)
	assert.Contains(t, err.Error(), missing)

	total, err := f.svc.TotalOrders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPlaceOrder_MalformedProductID(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID,
		cart(dto.OrderItemRequest{ProductID: "not-an-id", Qty: 1}))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "not-an-id", nf.ID)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Monitor", "200.00", 2)

	_, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID, cart(line(p, 3)))

	var serr *InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Monitor", serr.Name)
	assert.Equal(t, 2, serr.Available)
	assert.Equal(t, 3, serr.Requested)
	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.Empty(t, f.pub.types())
}

func TestPlaceOrder_PublishFailureDoesNotFail(t *testing.T) {
	f := newOrderFixture(t)
	f.pub.err = errors.New("broker down")
	p := f.addProduct(t, "Mouse", "30.00", 10)

	order, err := f.svc.PlaceOrder(context.Background(), f.buyer.ID, cart(line(p, 1)))
	require.NoError(t, err)
	assert.False(t, order.ID.IsZero())
}

func TestPayOrder_DecrementsStockAndMarksPaid(t *testing.T) {
	f := newOrderFixture(t)
	a := f.addProduct(t, "Mouse", "30.00", 10)
	b := f.addProduct(t, "Pad", "5.50", 3)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(a, 4), line(b, 3)))
	require.NoError(t, err)

	paid, err := f.svc.PayOrder(ctx, order.ID.Hex(), paypalResult)
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentResult)
	assert.Equal(t, "PAY-1", paid.PaymentResult.ID)
	assert.Equal(t, "buyer@example.com", paid.PaymentResult.EmailAddress)
	assert.Equal(t, 6, f.stock(t, a.ID))
	assert.Equal(t, 0, f.stock(t, b.ID))
	assert.Equal(t, []string{events.OrderPlaced, events.OrderPaid}, f.pub.types())
}

func TestPayOrder_Twice(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 2)))
	require.NoError(t, err)
	_, err = f.svc.PayOrder(ctx, order.ID.Hex(), paypalResult)
	require.NoError(t, err)

	_, err = f.svc.PayOrder(ctx, order.ID.Hex(), paypalResult)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, 8, f.stock(t, p.ID))
}

func TestPayOrder_ConcurrentPaymentsSettleOnce(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 3)))
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PayOrder(ctx, order.ID.Hex(), paypalResult)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, f.stock(t, p.ID))
}

func TestPayOrder_StockGoneRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	a := f.addProduct(t, "Mouse", "30.00", 10)
	b := f.addProduct(t, "Monitor", "200.00", 2)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(a, 4), line(b, 2)))
	require.NoError(t, err)

	// otra compra se lleva el stock del segundo producto
	require.NoError(t, f.store.Products().DecrementStock(ctx, b.ID, 1))

	_, err = f.svc.PayOrder(ctx, order.ID.Hex(), paypalResult)
	var serr *InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Monitor", serr.Name)
	assert.Equal(t, 1, serr.Available)

	// nada quedó aplicado, tampoco el descuento del primer producto
	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 1, f.stock(t, b.ID))
	stored, err := f.store.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)
	assert.Nil(t, stored.PaidAt)
}

func TestPayOrder_ProductDeletedAfterOrder(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 1)))
	require.NoError(t, err)
	require.NoError(t, f.store.Products().Delete(ctx, p.ID))

	_, err = f.svc.PayOrder(ctx, order.ID.Hex(), paypalResult)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, p.ID.Hex(), nf.ID)
}

func TestPayOrder_UnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.PayOrder(context.Background(), primitive.NewObjectID().Hex(), paypalResult)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Order", nf.Resource)
}

func TestDeliverOrder_BeforePayment(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 1)))
	require.NoError(t, err)

	delivered, err := f.svc.DeliverOrder(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.False(t, delivered.IsPaid)

	// entregar de nuevo no falla
	_, err = f.svc.DeliverOrder(ctx, order.ID.Hex())
	require.NoError(t, err)
}

func TestDeliverOrder_Unknown(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.DeliverOrder(context.Background(), "xyz")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGetOrder_OwnerOrAdmin(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "30.00", 10)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 1)))
	require.NoError(t, err)

	got, err := f.svc.GetOrder(ctx, order.ID.Hex(), toAuthUser(f.buyer))
	require.NoError(t, err)
	assert.Equal(t, "buyer", got.User.Username)
	assert.Equal(t, "buyer@example.com", got.User.Email)

	_, err = f.svc.GetOrder(ctx, order.ID.Hex(), toAuthUser(f.admin))
	require.NoError(t, err)

	stranger := &AuthUser{ID: primitive.NewObjectID(), Username: "other"}
	_, err = f.svc.GetOrder(ctx, order.ID.Hex(), stranger)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListOrders_Pagination(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Mouse", "1.00", 100)
	ctx := context.Background()

	for range 12 {
		_, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 1)))
		require.NoError(t, err)
	}
	_, err := f.svc.PlaceOrder(ctx, f.admin.ID, cart(line(p, 1)))
	require.NoError(t, err)

	first, err := f.svc.ListOrders(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, first.Orders, 10)
	assert.Equal(t, 2, first.Pages)
	assert.True(t, first.HasMore)

	second, err := f.svc.ListOrders(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second.Orders, 3)
	assert.False(t, second.HasMore)

	mine, err := f.svc.ListUserOrders(ctx, f.admin.ID, 0)
	require.NoError(t, err)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, 1, mine.Page)
	assert.Equal(t, "admin", mine.Orders[0].User.Username)
}

func TestDashboardAggregates(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct(t, "Cable", "10.00", 100)
	ctx := context.Background()

	o1, err := f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 2))) // 33.00
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, f.buyer.ID, cart(line(p, 1))) // 21.50
	require.NoError(t, err)
	_, err = f.svc.PayOrder(ctx, o1.ID.Hex(), paypalResult)
	require.NoError(t, err)

	count, err := f.svc.TotalOrders(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	sales, err := f.svc.TotalSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, "54.50", sales.String())

	byDate, err := f.svc.SalesByDate(ctx)
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "33.00", byDate[0].TotalSales.String())
}
