package arbitration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/domain/service"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeBook records whether any price or size was read
type fakeBook struct {
	bids, offers          bool
	bidSize, bidPrice     decimal.Decimal
	offerSize, offerPrice decimal.Decimal
	reads                 int
}

func (b *fakeBook) HasBids() bool   { return b.bids }
func (b *fakeBook) HasOffers() bool { return b.offers }
func (b *fakeBook) TopBidSize() decimal.Decimal {
	b.reads++
	return b.bidSize
}
func (b *fakeBook) TopBidPrice() decimal.Decimal {
	b.reads++
	return b.bidPrice
}
func (b *fakeBook) TopOfferSize() decimal.Decimal {
	b.reads++
	return b.offerSize
}
func (b *fakeBook) TopOfferPrice() decimal.Decimal {
	b.reads++
	return b.offerPrice
}

type fakeSide struct {
	book       *fakeBook
	instrument *entity.Instrument
}

func (s *fakeSide) Book() service.BookData {
	if s.book == nil {
		return nil
	}
	return s.book
}
func (s *fakeSide) Instrument() *entity.Instrument { return s.instrument }

type fakeLeg struct {
	name                string
	buyPrice, sellPrice decimal.Decimal
	last                decimal.Decimal
	buy, sell           *fakeSide
	refreshes           int
}

func (l *fakeLeg) Name() string               { return l.name }
func (l *fakeLeg) BuyPrice() decimal.Decimal  { return l.buyPrice }
func (l *fakeLeg) SellPrice() decimal.Decimal { return l.sellPrice }
func (l *fakeLeg) Last() decimal.Decimal      { return l.last }
func (l *fakeLeg) RefreshData()               { l.refreshes++ }
func (l *fakeLeg) Buy() service.Side {
	if l.buy == nil {
		return nil
	}
	return l.buy
}
func (l *fakeLeg) Sell() service.Side {
	if l.sell == nil {
		return nil
	}
	return l.sell
}

func bidSide(size, price, factor string) *fakeSide {
	return &fakeSide{
		book:       &fakeBook{bids: true, bidSize: d(size), bidPrice: d(price)},
		instrument: entity.NewInstrument("X", d(factor)),
	}
}

func offerSide(size, price, factor string) *fakeSide {
	return &fakeSide{
		book:       &fakeBook{offers: true, offerSize: d(size), offerPrice: d(price)},
		instrument: entity.NewInstrument("X", d(factor)),
	}
}

// scenario builds the four-side book used throughout:
// owned sell 100@10, arb buy 1000@9, arb sell 50@9.5, owned buy 1000@9.9
func scenario() (owned, arb *fakeLeg) {
	owned = &fakeLeg{
		name: "AL30",
		sell: bidSide("100", "10", "1"),
		buy:  offerSide("1000", "9.9", "1"),
	}
	arb = &fakeLeg{
		name: "GD30",
		sell: offerSide("1000", "9", "1"),
		buy:  bidSide("50", "9.5", "1"),
	}
	return owned, arb
}

func TestRatioTrade_Profit(t *testing.T) {
	tests := []struct {
		name      string
		sellPrice string
		buyPrice  string
		expected  decimal.Decimal
	}{
		{name: "two percent", sellPrice: "1020", buyPrice: "1000", expected: d("0.02")},
		{name: "loss", sellPrice: "990", buyPrice: "1000", expected: d("-0.01")},
		{name: "break even", sellPrice: "1000", buyPrice: "1000", expected: decimal.Zero},
		{name: "zero sell price", sellPrice: "0", buyPrice: "1000", expected: Unpriceable},
		{name: "zero buy price", sellPrice: "1020", buyPrice: "0", expected: Unpriceable},
		{name: "negative buy price", sellPrice: "1020", buyPrice: "-1", expected: Unpriceable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owned := &fakeLeg{name: "AL30", buyPrice: d(tt.buyPrice)}
			arb := &fakeLeg{name: "GD30", sellPrice: d(tt.sellPrice)}
			rt := NewRatioTrade(owned, arb)
			assert.True(t, tt.expected.Equal(rt.Profit()), "Profit() = %s, expected %s", rt.Profit(), tt.expected)
		})
	}
}

func TestRatioTrade_ProfitLast(t *testing.T) {
	owned := &fakeLeg{name: "AL30", last: d("1000"), buyPrice: d("1")}
	arb := &fakeLeg{name: "GD30", last: d("1015"), sellPrice: d("5")}
	rt := NewRatioTrade(owned, arb)

	assert.True(t, d("0.015").Equal(rt.ProfitLast()), "got %s", rt.ProfitLast())

	owned.last = decimal.Zero
	assert.True(t, Unpriceable.Equal(rt.ProfitLast()))
}

func TestRatioTrade_NilLegs(t *testing.T) {
	rt := NewRatioTrade(nil, nil)

	assert.True(t, Unpriceable.Equal(rt.Profit()))
	assert.True(t, Unpriceable.Equal(rt.ProfitLast()))
	assert.True(t, rt.MaxTradableSize().IsZero())
	assert.Equal(t, int64(0), rt.OwnedSellMaxSize())
	assert.Equal(t, "? / ?", rt.Name())
	assert.NotPanics(t, rt.RefreshData)

	r := rt.Readiness()
	assert.Equal(t, entity.ReadinessMissingSide, r.Status)
	assert.Equal(t, entity.RoleOwnedSell, r.Role)
}

func TestRatioTrade_RefreshData(t *testing.T) {
	owned, arb := scenario()
	rt := NewRatioTrade(owned, arb)

	rt.RefreshData()
	rt.RefreshData()

	assert.Equal(t, 2, owned.refreshes)
	assert.Equal(t, 2, arb.refreshes)
}

func TestRatioTrade_MaxTradableSize_Scenario(t *testing.T) {
	owned, arb := scenario()
	rt := NewRatioTrade(owned, arb)

	// cash 1000 -> 111.11 bought -> 50 sold for 475 -> 47.97 bought back
	assert.True(t, d("47").Equal(rt.MaxTradableSize()), "got %s", rt.MaxTradableSize())
	assert.Equal(t, int64(47), rt.OwnedSellMaxSize())
	assert.Equal(t, "AL30 / GD30", rt.Name())
}

func TestRatioTrade_MaxTradableSize(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(owned, arb *fakeLeg)
		expected string
	}{
		{
			name:     "first leg binds",
			mutate:   func(owned, arb *fakeLeg) { owned.sell.book.bidSize = d("10") },
			expected: "10",
		},
		{
			name: "cash constrained arb buy",
			mutate: func(owned, arb *fakeLeg) {
				arb.buy.book.bidSize = d("1000")
				owned.buy.book.offerPrice = d("9.5")
			},
			// 1000/9 = 111.11 -> cash 1055.55 -> 111.11 back, capped by 100 owned
			expected: "100",
		},
		{
			name:     "offer size binds arb buy",
			mutate:   func(owned, arb *fakeLeg) { arb.sell.book.offerSize = d("20") },
			// 20 sold at 9.5 = 190 -> 190/9.9 = 19.19
			expected: "19",
		},
		{
			name:     "offer size binds buy back",
			mutate:   func(owned, arb *fakeLeg) { owned.buy.book.offerSize = d("12.5") },
			expected: "12",
		},
		{
			name: "conversion factors scale cash",
			mutate: func(owned, arb *fakeLeg) {
				// bonds quoted per 100 nominal
				owned.sell.instrument.PriceConversionFactor = d("0.01")
				owned.buy.instrument.PriceConversionFactor = d("0.01")
				owned.sell.book.bidPrice = d("1000")
				owned.buy.book.offerPrice = d("990")
				owned.sell.book.bidSize = d("1000")
			},
			// cash 10000 -> 1000 offered -> 50 sold for 475 -> 475/9.9 = 47.97
			expected: "47",
		},
		{
			name:     "fraction below one unit collapses",
			mutate:   func(owned, arb *fakeLeg) { arb.buy.book.bidSize = d("0.5") },
			expected: "0",
		},
		{
			name:     "zero owned sell price",
			mutate:   func(owned, arb *fakeLeg) { owned.sell.book.bidPrice = decimal.Zero },
			expected: "0",
		},
		{
			name:     "negative arb buy price",
			mutate:   func(owned, arb *fakeLeg) { arb.sell.book.offerPrice = d("-9") },
			expected: "0",
		},
		{
			name:     "zero arb sell price",
			mutate:   func(owned, arb *fakeLeg) { arb.buy.book.bidPrice = decimal.Zero },
			expected: "0",
		},
		{
			name:     "zero owned buy price",
			mutate:   func(owned, arb *fakeLeg) { owned.buy.book.offerPrice = decimal.Zero },
			expected: "0",
		},
		{
			name:     "zero conversion factor",
			mutate:   func(owned, arb *fakeLeg) { arb.sell.instrument.PriceConversionFactor = decimal.Zero },
			expected: "0",
		},
		{
			name:     "zero owned sell size",
			mutate:   func(owned, arb *fakeLeg) { owned.sell.book.bidSize = decimal.Zero },
			expected: "0",
		},
		{
			name:     "zero arb buy size",
			mutate:   func(owned, arb *fakeLeg) { arb.sell.book.offerSize = decimal.Zero },
			expected: "0",
		},
		{
			name:     "zero arb sell size",
			mutate:   func(owned, arb *fakeLeg) { arb.buy.book.bidSize = decimal.Zero },
			expected: "0",
		},
		{
			name:     "zero owned buy size",
			mutate:   func(owned, arb *fakeLeg) { owned.buy.book.offerSize = decimal.Zero },
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owned, arb := scenario()
			tt.mutate(owned, arb)
			rt := NewRatioTrade(owned, arb)

			got := rt.MaxTradableSize()
			assert.True(t, d(tt.expected).Equal(got), "MaxTradableSize() = %s, expected %s", got, tt.expected)
			assert.Equal(t, got.IntPart(), rt.OwnedSellMaxSize())
			assert.True(t, got.LessThanOrEqual(owned.sell.book.bidSize), "result exceeds first leg bid size")
		})
	}
}

func TestRatioTrade_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(owned, arb *fakeLeg)
		status entity.ReadinessStatus
		role   entity.SideRole
	}{
		{
			name:   "ready",
			mutate: func(owned, arb *fakeLeg) {},
			status: entity.ReadinessReady,
			role:   entity.RoleNone,
		},
		{
			name:   "owned sell without bids",
			mutate: func(owned, arb *fakeLeg) { owned.sell.book.bids = false },
			status: entity.ReadinessEmptyBook,
			role:   entity.RoleOwnedSell,
		},
		{
			name:   "owned buy without offers",
			mutate: func(owned, arb *fakeLeg) { owned.buy.book.offers = false },
			status: entity.ReadinessEmptyBook,
			role:   entity.RoleOwnedBuy,
		},
		{
			name:   "arb buy without offers",
			mutate: func(owned, arb *fakeLeg) { arb.sell.book.offers = false },
			status: entity.ReadinessEmptyBook,
			role:   entity.RoleArbBuy,
		},
		{
			name:   "arb sell without bids",
			mutate: func(owned, arb *fakeLeg) { arb.buy.book.bids = false },
			status: entity.ReadinessEmptyBook,
			role:   entity.RoleArbSell,
		},
		{
			name:   "owned sell side missing",
			mutate: func(owned, arb *fakeLeg) { owned.sell = nil },
			status: entity.ReadinessMissingSide,
			role:   entity.RoleOwnedSell,
		},
		{
			name:   "arb sell book missing",
			mutate: func(owned, arb *fakeLeg) { arb.buy.book = nil },
			status: entity.ReadinessMissingSide,
			role:   entity.RoleArbSell,
		},
		{
			name:   "owned buy instrument missing",
			mutate: func(owned, arb *fakeLeg) { owned.buy.instrument = nil },
			status: entity.ReadinessMissingSide,
			role:   entity.RoleOwnedBuy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owned, arb := scenario()
			tt.mutate(owned, arb)
			rt := NewRatioTrade(owned, arb)

			r := rt.Readiness()
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.role, r.Role)
			if !r.Ready() {
				assert.True(t, rt.MaxTradableSize().IsZero())
			}
		})
	}
}

func TestRatioTrade_GuardShortCircuits(t *testing.T) {
	owned, arb := scenario()
	owned.sell.book.bids = false
	rt := NewRatioTrade(owned, arb)

	require.True(t, rt.MaxTradableSize().IsZero())

	for _, b := range []*fakeBook{owned.sell.book, owned.buy.book, arb.sell.book, arb.buy.book} {
		assert.Zero(t, b.reads, "guard must not read prices or sizes")
	}
}

func TestRatioTrade_MaxTradableSize_Monotonic(t *testing.T) {
	grow := []struct {
		name  string
		field func(owned, arb *fakeLeg) *decimal.Decimal
	}{
		{"owned sell size", func(o, a *fakeLeg) *decimal.Decimal { return &o.sell.book.bidSize }},
		{"owned sell price", func(o, a *fakeLeg) *decimal.Decimal { return &o.sell.book.bidPrice }},
		{"arb buy size", func(o, a *fakeLeg) *decimal.Decimal { return &a.sell.book.offerSize }},
		{"arb sell size", func(o, a *fakeLeg) *decimal.Decimal { return &a.buy.book.bidSize }},
		{"arb sell price", func(o, a *fakeLeg) *decimal.Decimal { return &a.buy.book.bidPrice }},
		{"owned buy size", func(o, a *fakeLeg) *decimal.Decimal { return &o.buy.book.offerSize }},
	}

	for _, g := range grow {
		t.Run(g.name, func(t *testing.T) {
			owned, arb := scenario()
			rt := NewRatioTrade(owned, arb)
			field := g.field(owned, arb)

			prev := rt.MaxTradableSize()
			for i := 0; i < 20; i++ {
				*field = field.Mul(d("1.5"))
				got := rt.MaxTradableSize()
				assert.True(t, got.GreaterThanOrEqual(prev), "step %d: %s < %s", i, got, prev)
				prev = got
			}
		})
	}
}

func TestRatioTrade_Snapshot(t *testing.T) {
	owned, arb := scenario()
	owned.buyPrice = d("1000")
	arb.sellPrice = d("1010")
	rt := NewRatioTrade(owned, arb)
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	snap := rt.Snapshot(at)

	assert.Equal(t, "AL30 / GD30", snap.Name)
	assert.True(t, d("0.01").Equal(snap.Profit))
	assert.True(t, Unpriceable.Equal(snap.ProfitLast))
	assert.True(t, d("47").Equal(snap.MaxTradableSize))
	assert.True(t, snap.Ready())
	assert.Equal(t, at, snap.Timestamp)
	assert.True(t, d("100").Equal(snap.ProfitBps()))
}
