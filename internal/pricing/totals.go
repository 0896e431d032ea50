package pricing

import (
	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
)

// Aggregate folds priced line items plus a net shipping charge into the
// order-level totals. Shipping is treated as a pseudo line item: its VAT rate
// defaults to the first item's rate, or the standard rate when the order has
// no items, and its VAT/gross amounts are derived exactly like a unit price.
//
// The function is pure; calling it twice over the same inputs yields the same
// totals. The cross-check identities
//
//	TotalGross == SubtotalGross + ShippingGross
//	TotalGross == SubtotalNet + ShippingNet + TotalVAT (± one minor unit)
//
// hold after all intermediate roundings.
func Aggregate(items []domain.PricedLineItem, shippingNet decimal.Decimal, shippingVATRate decimal.Decimal) domain.OrderTotals {
	var subtotalNet, subtotalGross, subtotalVAT decimal.Decimal
	for _, item := range items {
		subtotalNet = subtotalNet.Add(item.LineNet)
		subtotalGross = subtotalGross.Add(item.LineGross)
		subtotalVAT = subtotalVAT.Add(item.LineVAT)
	}

	rate := shippingVATRate
	if !rate.IsPositive() {
		rate = domain.DefaultVATRate
		if len(items) > 0 && items[0].VATRate.IsPositive() {
			rate = items[0].VATRate
		}
	}

	shippingVAT := Round2(shippingNet.Mul(rate))
	shippingGross := Round2(shippingNet.Add(shippingVAT))

	subtotalNet = Round2(subtotalNet)
	subtotalGross = Round2(subtotalGross)
	subtotalVAT = Round2(subtotalVAT)

	return domain.OrderTotals{
		SubtotalNet:   subtotalNet,
		SubtotalGross: subtotalGross,
		SubtotalVAT:   subtotalVAT,

		ShippingNet:     shippingNet,
		ShippingGross:   shippingGross,
		ShippingVAT:     shippingVAT,
		ShippingVATRate: rate,

		TotalNet:   Round2(subtotalNet.Add(shippingNet)),
		TotalGross: Round2(subtotalGross.Add(shippingGross)),
		TotalVAT:   Round2(subtotalVAT.Add(shippingVAT)),
	}
}
