package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sofia-padel/api/internal/domain"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func timePtr(ts time.Time) *time.Time { return &ts }

func TestPriceRegularProduct(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	product := domain.Product{
		ID:       "racket-01",
		PriceNet: dec(t, "10.00"),
		VATRate:  dec(t, "0.20"),
		Currency: "BGN",
	}

	unit := Price(product, now)

	if !unit.VATAmount.Equal(dec(t, "2.00")) {
		t.Fatalf("expected vat 2.00, got %s", unit.VATAmount)
	}
	if !unit.GrossPrice.Equal(dec(t, "12.00")) {
		t.Fatalf("expected gross 12.00, got %s", unit.GrossPrice)
	}
	if unit.Discount != nil {
		t.Fatalf("expected no discount, got %+v", unit.Discount)
	}
	if unit.Currency != "BGN" {
		t.Fatalf("expected currency BGN, got %s", unit.Currency)
	}
}

func TestPriceDefaultsVATRateAndCurrency(t *testing.T) {
	unit := Price(domain.Product{ID: "p", PriceNet: dec(t, "50.00")}, time.Now())

	if !unit.VATRate.Equal(dec(t, "0.20")) {
		t.Fatalf("expected default vat rate 0.20, got %s", unit.VATRate)
	}
	if !unit.VATAmount.Equal(dec(t, "10.00")) {
		t.Fatalf("expected vat 10.00, got %s", unit.VATAmount)
	}
	if unit.Currency != domain.DefaultCurrency {
		t.Fatalf("expected default currency, got %s", unit.Currency)
	}
}

func TestPriceActiveDiscount(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	product := domain.Product{
		ID:       "racket-01",
		PriceNet: dec(t, "10.00"),
		VATRate:  dec(t, "0.20"),
		Discount: &domain.Discount{
			Active:  true,
			Percent: dec(t, "10"),
			Start:   timePtr(now.Add(-24 * time.Hour)),
		},
	}

	unit := Price(product, now)

	if unit.Discount == nil {
		t.Fatal("expected discount to apply")
	}
	if !unit.Discount.NetPrice.Equal(dec(t, "9.00")) {
		t.Fatalf("expected discounted net 9.00, got %s", unit.Discount.NetPrice)
	}
	if !unit.Discount.VATAmount.Equal(dec(t, "1.80")) {
		t.Fatalf("expected discounted vat 1.80, got %s", unit.Discount.VATAmount)
	}
	if !unit.Discount.GrossPrice.Equal(dec(t, "10.80")) {
		t.Fatalf("expected discounted gross 10.80, got %s", unit.Discount.GrossPrice)
	}
	// Regular amounts stay untouched for provenance.
	if !unit.GrossPrice.Equal(dec(t, "12.00")) {
		t.Fatalf("expected original gross 12.00, got %s", unit.GrossPrice)
	}
}

func TestPriceDiscountWindowBoundaries(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	base := domain.Product{PriceNet: dec(t, "10.00"), VATRate: dec(t, "0.20")}

	cases := []struct {
		name     string
		discount *domain.Discount
		applies  bool
	}{
		{
			name: "start in the future",
			discount: &domain.Discount{
				Active:  true,
				Percent: dec(t, "10"),
				Start:   timePtr(now.Add(time.Hour)),
			},
		},
		{
			name: "ended",
			discount: &domain.Discount{
				Active:  true,
				Percent: dec(t, "10"),
				Start:   timePtr(now.Add(-48 * time.Hour)),
				End:     timePtr(now.Add(-time.Hour)),
			},
		},
		{
			name: "inactive flag",
			discount: &domain.Discount{
				Percent: dec(t, "10"),
				Start:   timePtr(now.Add(-time.Hour)),
			},
		},
		{
			name: "zero percent",
			discount: &domain.Discount{
				Active: true,
				Start:  timePtr(now.Add(-time.Hour)),
			},
		},
		{
			name: "no start",
			discount: &domain.Discount{
				Active:  true,
				Percent: dec(t, "10"),
			},
		},
		{
			name: "open ended window",
			discount: &domain.Discount{
				Active:  true,
				Percent: dec(t, "10"),
				Start:   timePtr(now.Add(-time.Hour)),
			},
			applies: true,
		},
		{
			name: "end equals now",
			discount: &domain.Discount{
				Active:  true,
				Percent: dec(t, "10"),
				Start:   timePtr(now.Add(-time.Hour)),
				End:     timePtr(now),
			},
			applies: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := base
			product.Discount = tc.discount
			unit := Price(product, now)
			if got := unit.Discounted(); got != tc.applies {
				t.Fatalf("expected discounted=%v, got %v", tc.applies, got)
			}
			if !tc.applies && unit.Discount != nil {
				t.Fatalf("expected absent discount outputs, got %+v", unit.Discount)
			}
		})
	}
}

func TestPriceActiveDiscountAlwaysLowersGross(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	prices := []string{"0.01", "1.99", "10.00", "33.33", "149.95", "999.99"}
	percents := []string{"1", "5", "10", "25", "50", "99"}

	for _, price := range prices {
		for _, percent := range percents {
			product := domain.Product{
				PriceNet: dec(t, price),
				VATRate:  dec(t, "0.20"),
				Discount: &domain.Discount{
					Active:  true,
					Percent: dec(t, percent),
					Start:   timePtr(now.Add(-time.Hour)),
				},
			}
			unit := Price(product, now)
			if unit.Discount == nil {
				t.Fatalf("price %s percent %s: discount missing", price, percent)
			}
			if !unit.Discount.GrossPrice.LessThan(unit.GrossPrice) {
				t.Fatalf("price %s percent %s: discounted gross %s not below %s",
					price, percent, unit.Discount.GrossPrice, unit.GrossPrice)
			}
		}
	}
}

func TestPriceGrossIdentity(t *testing.T) {
	now := time.Now()
	prices := []string{"0", "0.01", "3.49", "7.77", "120.50", "4999.99"}
	rates := []string{"0.05", "0.09", "0.20", "0.25", "1"}

	for _, price := range prices {
		for _, rate := range rates {
			product := domain.Product{PriceNet: dec(t, price), VATRate: dec(t, rate)}
			unit := Price(product, now)
			expected := Round2(unit.NetPrice.Add(Round2(unit.NetPrice.Mul(unit.VATRate))))
			if !unit.GrossPrice.Equal(expected) {
				t.Fatalf("price %s rate %s: gross %s, expected %s", price, rate, unit.GrossPrice, expected)
			}
			if !unit.GrossPrice.Equal(unit.NetPrice.Add(unit.VATAmount)) {
				t.Fatalf("price %s rate %s: gross != net + vat", price, rate)
			}
		}
	}
}

func TestPricePropagatesNegativePrice(t *testing.T) {
	unit := Price(domain.Product{PriceNet: dec(t, "-5.00"), VATRate: dec(t, "0.20")}, time.Now())
	if !unit.GrossPrice.Equal(dec(t, "-6.00")) {
		t.Fatalf("expected gross -6.00, got %s", unit.GrossPrice)
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
		{"0.125", "0.13"},
	}
	for _, tc := range cases {
		got := Round2(dec(t, tc.in))
		if !got.Equal(dec(t, tc.want)) {
			t.Fatalf("round2(%s) = %s, expected %s", tc.in, got, tc.want)
		}
	}
}

func TestPriceLineScenario(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	product := domain.Product{
		ID:       "racket-01",
		Name:     "Vertex 04",
		PriceNet: dec(t, "10.00"),
		VATRate:  dec(t, "0.20"),
	}

	item := PriceLine(product, 3, now)

	if !item.LineNet.Equal(dec(t, "30.00")) {
		t.Fatalf("expected line net 30.00, got %s", item.LineNet)
	}
	if !item.LineVAT.Equal(dec(t, "6.00")) {
		t.Fatalf("expected line vat 6.00, got %s", item.LineVAT)
	}
	if !item.LineGross.Equal(dec(t, "36.00")) {
		t.Fatalf("expected line gross 36.00, got %s", item.LineGross)
	}
	if item.Discounted {
		t.Fatal("expected discounted=false")
	}
}

func TestPriceLineDiscountedScenario(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	product := domain.Product{
		ID:       "racket-01",
		PriceNet: dec(t, "10.00"),
		VATRate:  dec(t, "0.20"),
		Discount: &domain.Discount{
			Active:  true,
			Percent: dec(t, "10"),
			Start:   timePtr(now.Add(-time.Hour)),
		},
	}

	item := PriceLine(product, 3, now)

	if !item.UnitNet.Equal(dec(t, "9.00")) {
		t.Fatalf("expected unit net 9.00, got %s", item.UnitNet)
	}
	if !item.UnitVAT.Equal(dec(t, "1.80")) {
		t.Fatalf("expected unit vat 1.80, got %s", item.UnitVAT)
	}
	if !item.UnitGross.Equal(dec(t, "10.80")) {
		t.Fatalf("expected unit gross 10.80, got %s", item.UnitGross)
	}
	if !item.LineGross.Equal(dec(t, "32.40")) {
		t.Fatalf("expected line gross 32.40, got %s", item.LineGross)
	}
	if !item.Discounted {
		t.Fatal("expected discounted=true")
	}
	if !item.DiscountPercent.Equal(dec(t, "10")) {
		t.Fatalf("expected discount percent 10, got %s", item.DiscountPercent)
	}
	if !item.OriginalUnitGross.Equal(dec(t, "12.00")) {
		t.Fatalf("expected original gross 12.00, got %s", item.OriginalUnitGross)
	}
}

func TestPriceLineUnitRoundingIsAuthoritative(t *testing.T) {
	// 0.333 * 0.20 = 0.0666 -> unit vat 0.07; 1000 units give 70.00, not the
	// 66.60 an unrounded intermediate would produce. The unit-first ordering
	// is the persisted contract.
	now := time.Now()
	product := domain.Product{PriceNet: dec(t, "0.333"), VATRate: dec(t, "0.20")}

	item := PriceLine(product, 1000, now)

	if !item.UnitVAT.Equal(dec(t, "0.07")) {
		t.Fatalf("expected unit vat 0.07, got %s", item.UnitVAT)
	}
	if !item.LineVAT.Equal(dec(t, "70.00")) {
		t.Fatalf("expected line vat 70.00, got %s", item.LineVAT)
	}
}
