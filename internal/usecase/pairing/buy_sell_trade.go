// Package pairing builds the legs of ratio trades from configured
// instrument pairs and keeps their book snapshots fresh.
package pairing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zono819/ratio-arb/internal/adapter/gateway"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/domain/service"
	"github.com/zono819/ratio-arb/internal/domain/service/arbitration"
	"github.com/zono819/ratio-arb/internal/infrastructure/config"
)

// Ensure BuySellTrade implements Leg
var _ service.Leg = (*BuySellTrade)(nil)

// quoteSide is one side of a leg backed by a book source
type quoteSide struct {
	instrument *entity.Instrument
	data       *entity.MarketData
}

func (s *quoteSide) Book() service.BookData {
	if s.data == nil {
		return nil
	}
	return s.data
}

func (s *quoteSide) Instrument() *entity.Instrument {
	return s.instrument
}

// cash converts a quoted price to cash per unit of nominal
func (s *quoteSide) cash(price decimal.Decimal) decimal.Decimal {
	return price.Mul(s.instrument.PriceConversionFactor)
}

// BuySellTrade pairs the instrument bought (e.g. AL30 in pesos) with the
// instrument sold (e.g. AL30D in dollars). Its prices are the exchange
// rate implied by going through the pair.
type BuySellTrade struct {
	name   string
	source gateway.BookSource
	buy    *quoteSide
	sell   *quoteSide
}

// NewBuySellTrade creates a leg reading books from source
func NewBuySellTrade(name string, buy, sell *entity.Instrument, source gateway.BookSource) *BuySellTrade {
	return &BuySellTrade{
		name:   name,
		source: source,
		buy:    &quoteSide{instrument: buy},
		sell:   &quoteSide{instrument: sell},
	}
}

// Name returns the leg name
func (t *BuySellTrade) Name() string {
	if t == nil {
		return "?"
	}
	return t.name
}

// Buy returns the side the instrument is acquired on
func (t *BuySellTrade) Buy() service.Side {
	if t == nil || t.buy == nil {
		return nil
	}
	return t.buy
}

// Sell returns the side the instrument is disposed on
func (t *BuySellTrade) Sell() service.Side {
	if t == nil || t.sell == nil {
		return nil
	}
	return t.sell
}

// RefreshData replaces both books with the latest snapshots.
// A side keeps its previous book when the source has none.
func (t *BuySellTrade) RefreshData() {
	if t == nil || t.source == nil {
		return
	}
	for _, s := range []*quoteSide{t.buy, t.sell} {
		if s == nil || s.instrument == nil {
			continue
		}
		if md, ok := t.source.Snapshot(s.instrument.Symbol); ok {
			s.data = md
		}
	}
}

// BuyPrice returns the rate paid buying on the buy side and selling on the
// sell side: buy offer over sell bid
func (t *BuySellTrade) BuyPrice() decimal.Decimal {
	if !t.priced() {
		return decimal.Zero
	}
	return impliedRate(t.buy.cash(t.buy.data.TopOfferPrice()), t.sell.cash(t.sell.data.TopBidPrice()))
}

// SellPrice returns the rate received selling on the buy side and buying on
// the sell side: buy bid over sell offer
func (t *BuySellTrade) SellPrice() decimal.Decimal {
	if !t.priced() {
		return decimal.Zero
	}
	return impliedRate(t.buy.cash(t.buy.data.TopBidPrice()), t.sell.cash(t.sell.data.TopOfferPrice()))
}

// Last returns the rate implied by last traded prices
func (t *BuySellTrade) Last() decimal.Decimal {
	if !t.priced() {
		return decimal.Zero
	}
	return impliedRate(t.buy.cash(t.buy.data.LastPrice()), t.sell.cash(t.sell.data.LastPrice()))
}

func (t *BuySellTrade) priced() bool {
	return t != nil &&
		t.buy != nil && t.buy.data != nil && t.buy.instrument.Tradable() &&
		t.sell != nil && t.sell.data != nil && t.sell.instrument.Tradable()
}

func impliedRate(num, den decimal.Decimal) decimal.Decimal {
	if !num.IsPositive() || !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den)
}

// Build creates one leg per configured pairing
func Build(legs []config.LegConfig, marketID string, source gateway.BookSource) ([]*BuySellTrade, error) {
	out := make([]*BuySellTrade, 0, len(legs))
	for _, lc := range legs {
		if lc.Buy.Symbol == "" || lc.Sell.Symbol == "" {
			return nil, fmt.Errorf("leg %s: missing symbol", lc.Name)
		}
		buy := entity.NewInstrument(lc.Buy.Symbol, lc.Buy.ConversionFactor)
		sell := entity.NewInstrument(lc.Sell.Symbol, lc.Sell.ConversionFactor)
		if marketID != "" {
			buy.MarketID = marketID
			sell.MarketID = marketID
		}
		out = append(out, NewBuySellTrade(lc.Name, buy, sell, source))
	}
	return out, nil
}

// Pairs returns a ratio trade for every ordered pair of distinct legs
func Pairs(legs []*BuySellTrade) []*arbitration.RatioTrade {
	out := make([]*arbitration.RatioTrade, 0, len(legs)*(len(legs)-1))
	for i, owned := range legs {
		for j, cheap := range legs {
			if i == j {
				continue
			}
			out = append(out, arbitration.NewRatioTrade(owned, cheap))
		}
	}
	return out
}

// Instruments returns every instrument the legs read, without duplicates
func Instruments(legs []*BuySellTrade) []*entity.Instrument {
	seen := make(map[string]bool)
	var out []*entity.Instrument
	for _, l := range legs {
		for _, s := range []*quoteSide{l.buy, l.sell} {
			if s == nil || s.instrument == nil || seen[s.instrument.Symbol] {
				continue
			}
			seen[s.instrument.Symbol] = true
			out = append(out, s.instrument)
		}
	}
	return out
}

// ResolveConversionFactors fills zero conversion factors from the listed
// instruments. Configured factors are kept.
func ResolveConversionFactors(legs []config.LegConfig, listed []*entity.Instrument) ([]config.LegConfig, error) {
	factors := make(map[string]decimal.Decimal, len(listed))
	for _, in := range listed {
		if in != nil {
			factors[in.Symbol] = in.PriceConversionFactor
		}
	}

	resolve := func(leg string, ic *config.InstrumentConfig) error {
		if !ic.ConversionFactor.IsZero() {
			return nil
		}
		f, ok := factors[ic.Symbol]
		if !ok || !f.IsPositive() {
			return fmt.Errorf("leg %s: no conversion factor for %q", leg, ic.Symbol)
		}
		ic.ConversionFactor = f
		return nil
	}

	out := make([]config.LegConfig, len(legs))
	copy(out, legs)
	for i := range out {
		if err := resolve(out[i].Name, &out[i].Buy); err != nil {
			return nil, err
		}
		if err := resolve(out[i].Name, &out[i].Sell); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NeedsConversionFactors reports whether any leg leaves a factor unset
func NeedsConversionFactors(legs []config.LegConfig) bool {
	for _, l := range legs {
		if l.Buy.ConversionFactor.IsZero() || l.Sell.ConversionFactor.IsZero() {
			return true
		}
	}
	return false
}
