package service

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/events"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const ordersPageSize = 10

var tracer = otel.Tracer("storefront-service")

type OrderService struct {
	orders    OrderRepository
	products  ProductRepository
	users     UserRepository
	tx        Transactor
	cache     ProductCache
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type OrderServiceDeps struct {
	Orders    OrderRepository
	Products  ProductRepository
	Users     UserRepository
	Tx        Transactor
	Cache     ProductCache
	Publisher events.Publisher
	Logger    *zap.Logger
}

func NewOrderService(d OrderServiceDeps) *OrderService {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &OrderService{
		orders:    d.Orders,
		products:  d.Products,
		users:     d.Users,
		tx:        d.Tx,
		cache:     d.Cache,
		publisher: d.Publisher,
		logger:    d.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder valida el carrito contra el catálogo y guarda la orden sin
// tocar el stock; el stock se descuenta recién al pagar.
func (s *OrderService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, req dto.CreateOrderRequest) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if len(req.OrderItems) == 0 {
		return nil, validationf("No order items")
	}

	// 1. Una sola consulta para todos los productos
	ids := make([]primitive.ObjectID, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		if it.Qty <= 0 {
			return nil, validationf("Invalid quantity for product %s", it.ProductID)
		}
		if id, err := primitive.ObjectIDFromHex(it.ProductID); err == nil {
			ids = append(ids, id)
		}
	}

	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	catalog := make(map[string]*model.Product, len(found))
	for _, p := range found {
		catalog[p.ID.Hex()] = p
	}

	// 2. Armar las líneas con el precio del catálogo
	items := make([]model.OrderItem, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		p, ok := catalog[it.ProductID]
		if !ok {
			return nil, &NotFoundError{Resource: "Product", ID: it.ProductID}
		}
		if it.Qty > p.CountInStock {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Name:      p.Name,
				Available: p.CountInStock,
				Requested: it.Qty,
			}
		}
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Qty:       it.Qty,
			Price:     p.Price,
		})
	}

	prices := CalcPrices(pricedItems(items))

	order := &model.Order{
		UserID:          userID,
		OrderItems:      items,
		ShippingAddress: req.ShippingAddress.ToModel(),
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      prices.ItemsPrice,
		ShippingPrice:   prices.ShippingPrice,
		TaxPrice:        prices.TaxPrice,
		TotalPrice:      prices.TotalPrice,
		CreatedAt:       s.now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID.Hex()),
		attribute.Int("order.items", len(items)),
		attribute.String("order.total", order.TotalPrice.String()),
	)
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("total", order.TotalPrice.String()),
	)
	s.publish(ctx, events.OrderPlaced, order)
	return order, nil
}

// PayOrder liquida el pago. El descuento de stock de todas las líneas y la
// marca de pagada van en la misma transacción; si algo falla no queda nada
// aplicado. MarkPaid es condicional (isPaid=false), así que de dos pagos
// concurrentes sólo uno gana.
func (s *OrderService) PayOrder(ctx context.Context, orderID string, result model.PaymentResult) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.PayOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	id, err := parseID("Order", orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Order", orderID)
	}
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}

	paidAt := s.now()
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, item := range order.OrderItems {
			if err := s.takeStock(ctx, item); err != nil {
				return err
			}
		}
		if err := s.orders.MarkPaid(ctx, id, result, paidAt); err != nil {
			if errors.Is(err, repository.ErrAlreadyPaid) {
				return ErrAlreadyPaid
			}
			return notFound(err, "Order", orderID)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.invalidateProducts(ctx, order.OrderItems)

	paid, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order paid",
		zap.String("order_id", orderID),
		zap.String("payment_id", result.ID),
		zap.String("payment_status", result.Status),
	)
	s.publish(ctx, events.OrderPaid, paid)
	return paid, nil
}

// takeStock revalida el stock de una línea al momento del pago y lo descuenta.
func (s *OrderService) takeStock(ctx context.Context, item model.OrderItem) error {
	p, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return notFound(err, "Product", item.ProductID.Hex())
	}

	stockErr := &InsufficientStockError{
		ProductID: p.ID.Hex(),
		Name:      p.Name,
		Available: p.CountInStock,
		Requested: item.Qty,
	}
	if p.CountInStock < item.Qty || p.Quantity < item.Qty {
		return stockErr
	}

	if err := s.products.DecrementStock(ctx, item.ProductID, item.Qty); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return stockErr
		}
		return notFound(err, "Product", item.ProductID.Hex())
	}
	return nil
}

// DeliverOrder marca la orden como entregada. No exige que esté paga y
// volver a marcarla sólo reescribe la fecha.
func (s *OrderService) DeliverOrder(ctx context.Context, orderID string) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.DeliverOrder")
	defer span.End()

	id, err := parseID("Order", orderID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.MarkDelivered(ctx, id, s.now()); err != nil {
		return nil, notFound(err, "Order", orderID)
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Order", orderID)
	}
	s.publish(ctx, events.OrderDelivered, order)
	return order, nil
}

// GetOrder devuelve la orden si el solicitante es el dueño o admin.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, requester *AuthUser) (*dto.OrderResponse, error) {
	id, err := parseID("Order", orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Order", orderID)
	}
	if !requester.IsAdmin && order.UserID != requester.ID {
		return nil, ErrForbidden
	}

	views, err := s.withUsers(ctx, []*model.Order{order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *OrderService) ListOrders(ctx context.Context, page int) (*dto.OrderPage, error) {
	return s.page(ctx, repository.OrderQuery{}, page)
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID primitive.ObjectID, page int) (*dto.OrderPage, error) {
	return s.page(ctx, repository.OrderQuery{UserID: &userID}, page)
}

func (s *OrderService) page(ctx context.Context, q repository.OrderQuery, page int) (*dto.OrderPage, error) {
	page = normalizePage(page)
	q.Page = repository.Page{Number: page, Size: ordersPageSize}

	orders, total, err := s.orders.FindPage(ctx, q)
	if err != nil {
		return nil, err
	}
	views, err := s.withUsers(ctx, orders)
	if err != nil {
		return nil, err
	}

	p := newPaged(views, page, ordersPageSize, total)
	return &dto.OrderPage{Orders: p.Items, Page: p.Page, Pages: p.Pages, HasMore: p.HasMore}, nil
}

func (s *OrderService) TotalOrders(ctx context.Context) (int64, error) {
	return s.orders.Count(ctx)
}

func (s *OrderService) TotalSales(ctx context.Context) (model.Amount, error) {
	total, err := s.orders.TotalSales(ctx)
	if err != nil {
		return model.Amount{}, err
	}
	return model.NewAmount(total), nil
}

func (s *OrderService) SalesByDate(ctx context.Context) ([]model.DailySales, error) {
	return s.orders.SalesByDate(ctx)
}

// withUsers completa el usuario de cada orden (equivalente a populate).
func (s *OrderService) withUsers(ctx context.Context, orders []*model.Order) ([]dto.OrderResponse, error) {
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, o := range orders {
		if !seen[o.UserID] {
			seen[o.UserID] = true
			ids = append(ids, o.UserID)
		}
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]dto.OrderResponse, len(orders))
	for i, o := range orders {
		ref := dto.UserRef{ID: o.UserID.Hex()}
		if u, ok := byID[o.UserID]; ok {
			ref.Username = u.Username
			ref.Email = u.Email
		}
		out[i] = dto.OrderResponse{Order: o, User: ref}
	}
	return out, nil
}

func (s *OrderService) invalidateProducts(ctx context.Context, items []model.OrderItem) {
	if s.cache == nil {
		return
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID.Hex()
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}

// publish no hace fallar la operación: el evento es best effort.
func (s *OrderService) publish(ctx context.Context, eventType string, o *model.Order) {
	ev := events.NewOrderEvent(eventType, o, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}
