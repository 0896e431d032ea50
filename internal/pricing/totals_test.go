package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofia-padel/api/internal/domain"
)

func TestAggregateSingleLineWithShipping(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	item := PriceLine(domain.Product{
		ID:       "racket-01",
		PriceNet: dec(t, "10.00"),
		VATRate:  dec(t, "0.20"),
	}, 3, now)

	totals := Aggregate([]domain.PricedLineItem{item}, dec(t, "5.00"), decimal.Zero)

	if !totals.SubtotalNet.Equal(dec(t, "30.00")) {
		t.Fatalf("expected subtotal net 30.00, got %s", totals.SubtotalNet)
	}
	if !totals.SubtotalGross.Equal(dec(t, "36.00")) {
		t.Fatalf("expected subtotal gross 36.00, got %s", totals.SubtotalGross)
	}
	if !totals.ShippingVATRate.Equal(dec(t, "0.20")) {
		t.Fatalf("expected shipping rate 0.20 from first item, got %s", totals.ShippingVATRate)
	}
	if !totals.ShippingVAT.Equal(dec(t, "1.00")) {
		t.Fatalf("expected shipping vat 1.00, got %s", totals.ShippingVAT)
	}
	if !totals.ShippingGross.Equal(dec(t, "6.00")) {
		t.Fatalf("expected shipping gross 6.00, got %s", totals.ShippingGross)
	}
	if !totals.TotalGross.Equal(dec(t, "42.00")) {
		t.Fatalf("expected total gross 42.00, got %s", totals.TotalGross)
	}
	if !totals.TotalVAT.Equal(dec(t, "7.00")) {
		t.Fatalf("expected total vat 7.00, got %s", totals.TotalVAT)
	}
}

func TestAggregateEmptyOrderDefaultsShippingRate(t *testing.T) {
	totals := Aggregate(nil, dec(t, "5.00"), decimal.Zero)

	if !totals.SubtotalGross.IsZero() {
		t.Fatalf("expected zero subtotal, got %s", totals.SubtotalGross)
	}
	if !totals.ShippingVATRate.Equal(dec(t, "0.20")) {
		t.Fatalf("expected default shipping rate, got %s", totals.ShippingVATRate)
	}
	if !totals.ShippingGross.Equal(dec(t, "6.00")) {
		t.Fatalf("expected shipping gross 6.00, got %s", totals.ShippingGross)
	}
	if !totals.TotalGross.Equal(dec(t, "6.00")) {
		t.Fatalf("expected total gross 6.00, got %s", totals.TotalGross)
	}
}

func TestAggregateExplicitShippingRateWins(t *testing.T) {
	now := time.Now()
	item := PriceLine(domain.Product{PriceNet: dec(t, "10.00"), VATRate: dec(t, "0.20")}, 1, now)

	totals := Aggregate([]domain.PricedLineItem{item}, dec(t, "10.00"), dec(t, "0.09"))

	if !totals.ShippingVATRate.Equal(dec(t, "0.09")) {
		t.Fatalf("expected shipping rate 0.09, got %s", totals.ShippingVATRate)
	}
	if !totals.ShippingVAT.Equal(dec(t, "0.90")) {
		t.Fatalf("expected shipping vat 0.90, got %s", totals.ShippingVAT)
	}
}

func TestAggregateMixedRatesUsesFirstItemForShipping(t *testing.T) {
	now := time.Now()
	items := []domain.PricedLineItem{
		PriceLine(domain.Product{PriceNet: dec(t, "10.00"), VATRate: dec(t, "0.09")}, 1, now),
		PriceLine(domain.Product{PriceNet: dec(t, "10.00"), VATRate: dec(t, "0.20")}, 1, now),
	}

	totals := Aggregate(items, dec(t, "5.00"), decimal.Zero)

	if !totals.ShippingVATRate.Equal(dec(t, "0.09")) {
		t.Fatalf("expected first item rate 0.09, got %s", totals.ShippingVATRate)
	}
	if !totals.SubtotalVAT.Equal(dec(t, "2.90")) {
		t.Fatalf("expected subtotal vat 2.90, got %s", totals.SubtotalVAT)
	}
}

func TestAggregateFreeShipping(t *testing.T) {
	now := time.Now()
	item := PriceLine(domain.Product{PriceNet: dec(t, "10.00"), VATRate: dec(t, "0.20")}, 2, now)

	totals := Aggregate([]domain.PricedLineItem{item}, decimal.Zero, decimal.Zero)

	if !totals.ShippingGross.IsZero() {
		t.Fatalf("expected zero shipping, got %s", totals.ShippingGross)
	}
	if !totals.TotalGross.Equal(totals.SubtotalGross) {
		t.Fatalf("expected total %s to equal subtotal %s", totals.TotalGross, totals.SubtotalGross)
	}
}

func TestAggregateIdentities(t *testing.T) {
	now := time.Now()
	items := []domain.PricedLineItem{
		PriceLine(domain.Product{PriceNet: dec(t, "19.99"), VATRate: dec(t, "0.20")}, 2, now),
		PriceLine(domain.Product{PriceNet: dec(t, "7.77"), VATRate: dec(t, "0.09")}, 5, now),
		PriceLine(domain.Product{
			PriceNet: dec(t, "149.95"),
			VATRate:  dec(t, "0.20"),
			Discount: &domain.Discount{
				Active:  true,
				Percent: dec(t, "15"),
				Start:   func() *time.Time { ts := now.Add(-time.Hour); return &ts }(),
			},
		}, 1, now),
	}

	totals := Aggregate(items, dec(t, "4.50"), decimal.Zero)

	var net, gross, vat decimal.Decimal
	for _, item := range items {
		net = net.Add(item.LineNet)
		gross = gross.Add(item.LineGross)
		vat = vat.Add(item.LineVAT)
	}
	if !totals.SubtotalNet.Equal(Round2(net)) {
		t.Fatalf("subtotal net %s, expected %s", totals.SubtotalNet, Round2(net))
	}
	if !totals.SubtotalGross.Equal(Round2(gross)) {
		t.Fatalf("subtotal gross %s, expected %s", totals.SubtotalGross, Round2(gross))
	}
	if !totals.SubtotalVAT.Equal(Round2(vat)) {
		t.Fatalf("subtotal vat %s, expected %s", totals.SubtotalVAT, Round2(vat))
	}
	if !totals.TotalGross.Equal(Round2(totals.SubtotalGross.Add(totals.ShippingGross))) {
		t.Fatalf("total gross %s breaks subtotal+shipping identity", totals.TotalGross)
	}
	if !totals.TotalNet.Equal(Round2(totals.SubtotalNet.Add(totals.ShippingNet))) {
		t.Fatalf("total net %s breaks subtotal+shipping identity", totals.TotalNet)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	now := time.Now()
	items := []domain.PricedLineItem{
		PriceLine(domain.Product{PriceNet: dec(t, "10.00"), VATRate: dec(t, "0.20")}, 3, now),
	}

	first := Aggregate(items, dec(t, "5.00"), decimal.Zero)
	second := Aggregate(items, dec(t, "5.00"), decimal.Zero)

	if !first.TotalGross.Equal(second.TotalGross) || !first.ShippingVAT.Equal(second.ShippingVAT) {
		t.Fatalf("expected identical totals, got %+v and %+v", first, second)
	}
}
