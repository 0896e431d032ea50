package domain

import "github.com/shopspring/decimal"

// AppliedDiscount carries the discounted unit amounts produced when a
// product's discount window is in effect. A nil AppliedDiscount means the
// discount did not apply; callers must not treat that as a zero discount.
type AppliedDiscount struct {
	Percent    decimal.Decimal
	NetPrice   decimal.Decimal
	VATAmount  decimal.Decimal
	GrossPrice decimal.Decimal
}

// PricedUnit is the result of pricing a single catalog unit at an instant.
type PricedUnit struct {
	ProductID string
	Currency  string
	VATRate   decimal.Decimal

	// Regular amounts, always present.
	NetPrice   decimal.Decimal
	VATAmount  decimal.Decimal
	GrossPrice decimal.Decimal

	// Discount is nil unless the discount window was in effect.
	Discount *AppliedDiscount
}

// Discounted reports whether a discount applied to this unit.
func (u PricedUnit) Discounted() bool { return u.Discount != nil }

// EffectiveNet returns the unit net price the buyer is charged.
func (u PricedUnit) EffectiveNet() decimal.Decimal {
	if u.Discount != nil {
		return u.Discount.NetPrice
	}
	return u.NetPrice
}

// EffectiveVAT returns the unit VAT amount the buyer is charged.
func (u PricedUnit) EffectiveVAT() decimal.Decimal {
	if u.Discount != nil {
		return u.Discount.VATAmount
	}
	return u.VATAmount
}

// EffectiveGross returns the unit gross price the buyer is charged.
func (u PricedUnit) EffectiveGross() decimal.Decimal {
	if u.Discount != nil {
		return u.Discount.GrossPrice
	}
	return u.GrossPrice
}

// PricedLineItem is an order line after pricing. Line totals are the rounded
// unit values multiplied by quantity; they are never re-derived from a
// separately rounded line net, so unit-level rounding is authoritative.
type PricedLineItem struct {
	ProductID string
	Name      string
	Quantity  int

	UnitNet   decimal.Decimal
	UnitGross decimal.Decimal
	UnitVAT   decimal.Decimal
	VATRate   decimal.Decimal

	LineNet   decimal.Decimal
	LineGross decimal.Decimal
	LineVAT   decimal.Decimal

	Currency string

	// Discount provenance.
	Discounted        bool
	DiscountPercent   decimal.Decimal
	OriginalUnitNet   decimal.Decimal
	OriginalUnitGross decimal.Decimal
}

// OrderTotals aggregates priced line items plus shipping into the order-level
// breakdown persisted with each order.
type OrderTotals struct {
	SubtotalNet   decimal.Decimal
	SubtotalGross decimal.Decimal
	SubtotalVAT   decimal.Decimal

	ShippingNet     decimal.Decimal
	ShippingGross   decimal.Decimal
	ShippingVAT     decimal.Decimal
	ShippingVATRate decimal.Decimal

	TotalNet   decimal.Decimal
	TotalGross decimal.Decimal
	TotalVAT   decimal.Decimal
}
