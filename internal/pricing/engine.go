// Package pricing implements the VAT and discount arithmetic shared by the
// catalog, checkout, and invoicing flows. All amounts are decimal values
// rounded to two places with round-half-away-from-zero, matching the
// behaviour the storefront has always exposed.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Round2 rounds a monetary amount to two decimal places, half away from
// zero. Every intermediate monetary value in this package passes through it;
// the rounding mode is load-bearing for VAT reconciliation and must not be
// changed to banker's rounding.
func Round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// Price computes the VAT-inclusive unit amounts for a product at the given
// instant. The regular net/VAT/gross triple is always populated; the
// discounted triple is attached only when the product's discount window is in
// effect at that instant. Negative base prices are propagated unchanged —
// catalog validation is the caller's concern, not the engine's.
func Price(product domain.Product, at time.Time) domain.PricedUnit {
	vatRate := product.EffectiveVATRate()
	net := product.PriceNet
	vatAmount := Round2(net.Mul(vatRate))
	gross := Round2(net.Add(vatAmount))

	unit := domain.PricedUnit{
		ProductID:  product.ID,
		Currency:   product.EffectiveCurrency(),
		VATRate:    vatRate,
		NetPrice:   net,
		VATAmount:  vatAmount,
		GrossPrice: gross,
	}

	if product.Discount.InEffect(at) {
		percent := product.Discount.Percent
		discountedNet := Round2(net.Mul(one.Sub(percent.Div(hundred))))
		discountedVAT := Round2(discountedNet.Mul(vatRate))
		discountedGross := Round2(discountedNet.Add(discountedVAT))
		unit.Discount = &domain.AppliedDiscount{
			Percent:    percent,
			NetPrice:   discountedNet,
			VATAmount:  discountedVAT,
			GrossPrice: discountedGross,
		}
	}

	return unit
}

// PriceLine prices a product at the given instant and extends the unit
// amounts to a full order line. Line totals multiply the already-rounded unit
// values by the quantity; they are deliberately not re-derived from an
// independently rounded line net, so the unit and line granularities always
// reconcile.
func PriceLine(product domain.Product, quantity int, at time.Time) domain.PricedLineItem {
	unit := Price(product, at)
	qty := decimal.NewFromInt(int64(quantity))

	item := domain.PricedLineItem{
		ProductID:         product.ID,
		Name:              product.Name,
		Quantity:          quantity,
		UnitNet:           unit.EffectiveNet(),
		UnitGross:         unit.EffectiveGross(),
		UnitVAT:           unit.EffectiveVAT(),
		VATRate:           unit.VATRate,
		Currency:          unit.Currency,
		Discounted:        unit.Discounted(),
		OriginalUnitNet:   unit.NetPrice,
		OriginalUnitGross: unit.GrossPrice,
	}
	if unit.Discount != nil {
		item.DiscountPercent = unit.Discount.Percent
	}

	item.LineNet = Round2(item.UnitNet.Mul(qty))
	item.LineGross = Round2(item.UnitGross.Mul(qty))
	item.LineVAT = Round2(item.UnitVAT.Mul(qty))
	return item
}
