package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderBookLevel represents a single level in order book
type OrderBookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// MarketData is a top-of-book snapshot for one instrument (exchange-agnostic).
// Bids are sorted best (highest) first, Offers best (lowest) first.
type MarketData struct {
	Symbol    string
	Bids      []OrderBookLevel
	Offers    []OrderBookLevel
	Last      *OrderBookLevel
	Timestamp time.Time
}

// HasBids returns true if at least one bid is resting
func (md *MarketData) HasBids() bool {
	return md != nil && len(md.Bids) > 0
}

// HasOffers returns true if at least one offer is resting
func (md *MarketData) HasOffers() bool {
	return md != nil && len(md.Offers) > 0
}

// TopBidPrice returns best bid price, zero when there are no bids
func (md *MarketData) TopBidPrice() decimal.Decimal {
	if !md.HasBids() {
		return decimal.Zero
	}
	return md.Bids[0].Price
}

// TopBidSize returns best bid size, zero when there are no bids
func (md *MarketData) TopBidSize() decimal.Decimal {
	if !md.HasBids() {
		return decimal.Zero
	}
	return md.Bids[0].Size
}

// TopOfferPrice returns best offer price, zero when there are no offers
func (md *MarketData) TopOfferPrice() decimal.Decimal {
	if !md.HasOffers() {
		return decimal.Zero
	}
	return md.Offers[0].Price
}

// TopOfferSize returns best offer size, zero when there are no offers
func (md *MarketData) TopOfferSize() decimal.Decimal {
	if !md.HasOffers() {
		return decimal.Zero
	}
	return md.Offers[0].Size
}

// LastPrice returns last traded price, zero when nothing traded yet
func (md *MarketData) LastPrice() decimal.Decimal {
	if md == nil || md.Last == nil {
		return decimal.Zero
	}
	return md.Last.Price
}

// Spread returns offer - bid, zero unless both sides are quoted
func (md *MarketData) Spread() decimal.Decimal {
	if !md.HasBids() || !md.HasOffers() {
		return decimal.Zero
	}
	return md.TopOfferPrice().Sub(md.TopBidPrice())
}

// Clone returns a deep copy so readers never share slices with writers
func (md *MarketData) Clone() *MarketData {
	if md == nil {
		return nil
	}
	out := &MarketData{
		Symbol:    md.Symbol,
		Bids:      append([]OrderBookLevel(nil), md.Bids...),
		Offers:    append([]OrderBookLevel(nil), md.Offers...),
		Timestamp: md.Timestamp,
	}
	if md.Last != nil {
		last := *md.Last
		out.Last = &last
	}
	return out
}
