package service

import (
	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
)

var (
	freeShippingOver = decimal.NewFromInt(100)
	flatShipping     = decimal.NewFromInt(10)
	taxRate          = decimal.RequireFromString("0.15")
)

// PricedItem es lo mínimo que necesita el cálculo: precio unitario y cantidad.
type PricedItem struct {
	Price decimal.Decimal
	Qty   int
}

type OrderPrices struct {
	ItemsPrice    model.Amount
	ShippingPrice model.Amount
	TaxPrice      model.Amount
	TotalPrice    model.Amount
}

// CalcPrices calcula los importes de una orden. El envío es gratis sólo si
// el subtotal supera 100.00; una lista vacía igual paga 10.00 de envío.
// Redondeo half-up a dos decimales.
func CalcPrices(items []PricedItem) OrderPrices {
	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	shipping := flatShipping
	if itemsPrice.GreaterThan(freeShippingOver) {
		shipping = decimal.Zero
	}

	tax := itemsPrice.Mul(taxRate).Round(2)
	total := itemsPrice.Add(shipping).Add(tax).Round(2)

	return OrderPrices{
		ItemsPrice:    model.NewAmount(itemsPrice.Round(2)),
		ShippingPrice: model.NewAmount(shipping),
		TaxPrice:      model.NewAmount(tax),
		TotalPrice:    model.NewAmount(total),
	}
}

func pricedItems(items []model.OrderItem) []PricedItem {
	out := make([]PricedItem, len(items))
	for i, it := range items {
		out[i] = PricedItem{Price: it.Price.Decimal, Qty: it.Qty}
	}
	return out
}
