// Package arbitration computes the economics of a ratio trade: selling a
// held instrument, buying a relatively cheap one with the proceeds, selling
// it in its other currency and buying the held instrument back.
package arbitration

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/domain/service"
)

// Unpriceable is returned by Profit and ProfitLast when a price is missing
var Unpriceable = decimal.NewFromInt(-100)

// RatioTrade wraps the two legs of a ratio trade. The legs are fixed at
// construction; callers refresh them through RefreshData and then read
// the derived values, which are recomputed on every call.
//
// RefreshData must not run concurrently with the readers.
type RatioTrade struct {
	sellThenBuy service.Leg
	buyThenSell service.Leg
}

// NewRatioTrade creates a ratio trade.
// sellThenBuy is the relatively expensive instrument that is held,
// buyThenSell the relatively cheap one.
func NewRatioTrade(sellThenBuy, buyThenSell service.Leg) *RatioTrade {
	return &RatioTrade{
		sellThenBuy: sellThenBuy,
		buyThenSell: buyThenSell,
	}
}

// SellThenBuy returns the leg of the held instrument
func (rt *RatioTrade) SellThenBuy() service.Leg {
	return rt.sellThenBuy
}

// BuyThenSell returns the leg of the cheap instrument
func (rt *RatioTrade) BuyThenSell() service.Leg {
	return rt.buyThenSell
}

// Name returns "<held> / <cheap>"
func (rt *RatioTrade) Name() string {
	return legName(rt.sellThenBuy) + " / " + legName(rt.buyThenSell)
}

func legName(l service.Leg) string {
	if l == nil {
		return "?"
	}
	return l.Name()
}

// Profit returns the best-quote round trip return, e.g. 0.02 for 2%
func (rt *RatioTrade) Profit() decimal.Decimal {
	if rt.sellThenBuy == nil || rt.buyThenSell == nil {
		return Unpriceable
	}
	return ratioReturn(rt.buyThenSell.SellPrice(), rt.sellThenBuy.BuyPrice())
}

// ProfitLast returns the round trip return at last traded prices
func (rt *RatioTrade) ProfitLast() decimal.Decimal {
	if rt.sellThenBuy == nil || rt.buyThenSell == nil {
		return Unpriceable
	}
	return ratioReturn(rt.buyThenSell.Last(), rt.sellThenBuy.Last())
}

func ratioReturn(sell, buy decimal.Decimal) decimal.Decimal {
	if !sell.IsPositive() || !buy.IsPositive() {
		return Unpriceable
	}
	return sell.Div(buy).Sub(decimal.NewFromInt(1))
}

// RefreshData asks both legs to pull fresh quotes
func (rt *RatioTrade) RefreshData() {
	if rt.buyThenSell != nil {
		rt.buyThenSell.RefreshData()
	}
	if rt.sellThenBuy != nil {
		rt.sellThenBuy.RefreshData()
	}
}

// OwnedSellMaxSize returns MaxTradableSize as a whole order quantity
func (rt *RatioTrade) OwnedSellMaxSize() int64 {
	return rt.MaxTradableSize().IntPart()
}

// quote is the top of book read from one side for one step of the chain
type quote struct {
	size   decimal.Decimal
	price  decimal.Decimal
	factor decimal.Decimal
}

func bidQuote(s service.Side) quote {
	book := s.Book()
	return quote{size: book.TopBidSize(), price: book.TopBidPrice(), factor: s.Instrument().PriceConversionFactor}
}

func offerQuote(s service.Side) quote {
	book := s.Book()
	return quote{size: book.TopOfferSize(), price: book.TopOfferPrice(), factor: s.Instrument().PriceConversionFactor}
}

// cash returns what nominal is worth at this quote
func (q quote) cash(nominal decimal.Decimal) decimal.Decimal {
	return nominal.Mul(q.price).Mul(q.factor)
}

// affordable returns the nominal the cash buys at this quote, capped by resting size
func (q quote) affordable(cash decimal.Decimal) decimal.Decimal {
	return decimal.Min(q.size, cash.Div(q.price.Mul(q.factor)))
}

// MaxTradableSize returns the largest nominal of the held instrument that
// the current top of book lets the full cycle execute, floored to a whole
// unit. It returns zero when any side is missing, unquoted, priced at or
// below zero, or when liquidity runs out at any step.
func (rt *RatioTrade) MaxTradableSize() decimal.Decimal {
	if !rt.Readiness().Ready() {
		return decimal.Zero
	}

	// 1) sell the held instrument into bids
	ownedSell := bidQuote(rt.sellThenBuy.Sell())
	// 2) buy the cheap instrument from offers
	arbBuy := offerQuote(rt.buyThenSell.Sell())
	// 3) sell what was bought into bids
	arbSell := bidQuote(rt.buyThenSell.Buy())
	// 4) buy the held instrument back from offers
	ownedBuy := offerQuote(rt.sellThenBuy.Buy())

	for _, q := range []quote{ownedSell, arbBuy, arbSell, ownedBuy} {
		if !q.price.IsPositive() || !q.factor.IsPositive() {
			return decimal.Zero
		}
	}

	cashFromOwnedSell := ownedSell.cash(ownedSell.size)
	if !cashFromOwnedSell.IsPositive() {
		return decimal.Zero
	}

	arbBuyNominal := arbBuy.affordable(cashFromOwnedSell)
	if !arbBuyNominal.IsPositive() {
		return decimal.Zero
	}

	// the bought nominal is already held, so this step is bound by size only
	arbSellNominal := decimal.Min(arbBuyNominal, arbSell.size)
	if !arbSellNominal.IsPositive() {
		return decimal.Zero
	}

	cashFromArbSell := arbSell.cash(arbSellNominal)
	if !cashFromArbSell.IsPositive() {
		return decimal.Zero
	}

	ownedBuyNominal := ownedBuy.affordable(cashFromArbSell)

	// the cycle cannot close more than the first step liquidated
	maxCycleNominal := decimal.Min(ownedSell.size, ownedBuyNominal)
	if !maxCycleNominal.IsPositive() {
		return decimal.Zero
	}
	return maxCycleNominal.Floor()
}

// Snapshot reads every derived value once
func (rt *RatioTrade) Snapshot(at time.Time) entity.RatioSnapshot {
	r := rt.Readiness()
	return entity.RatioSnapshot{
		Name:            rt.Name(),
		Profit:          rt.Profit(),
		ProfitLast:      rt.ProfitLast(),
		MaxTradableSize: rt.MaxTradableSize(),
		Status:          r.Status,
		Role:            r.Role,
		Timestamp:       at,
	}
}
