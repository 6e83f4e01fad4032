package dto

import (
	"storefront-service/internal/model"
)

// OrderItemRequest es una línea del carrito. El precio que mande el cliente
// se ignora: siempre se usa el del catálogo.
type OrderItemRequest struct {
	ProductID string `json:"_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required,gt=0"`
}

type ShippingAddressDTO struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

func (s ShippingAddressDTO) ToModel() model.ShippingAddress {
	return model.ShippingAddress{
		Address:    s.Address,
		City:       s.City,
		PostalCode: s.PostalCode,
		Country:    s.Country,
	}
}

// CreateOrderRequest: orderItems no lleva "required" para que la lista
// vacía llegue al servicio y devuelva el error de validación propio.
type CreateOrderRequest struct {
	OrderItems      []OrderItemRequest `json:"orderItems" binding:"dive"`
	ShippingAddress ShippingAddressDTO `json:"shippingAddress" binding:"required"`
	PaymentMethod   string             `json:"paymentMethod" binding:"required"`
}

type PayerDTO struct {
	EmailAddress string `json:"email_address"`
}

// PaymentResultRequest es la confirmación que devuelve PayPal.
type PaymentResultRequest struct {
	ID         string   `json:"id" binding:"required"`
	Status     string   `json:"status" binding:"required"`
	UpdateTime string   `json:"update_time"`
	Payer      PayerDTO `json:"payer"`
}

func (p PaymentResultRequest) ToModel() model.PaymentResult {
	return model.PaymentResult{
		ID:           p.ID,
		Status:       p.Status,
		UpdateTime:   p.UpdateTime,
		EmailAddress: p.Payer.EmailAddress,
	}
}

type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type OrderResponse struct {
	*model.Order
	User UserRef `json:"user"`
}

type OrderPage struct {
	Orders  []OrderResponse `json:"orders"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	HasMore bool            `json:"hasMore"`
}

type TotalOrdersResponse struct {
	TotalOrders int64 `json:"totalOrders"`
}

type TotalSalesResponse struct {
	TotalSales model.Amount `json:"totalSales"`
}
