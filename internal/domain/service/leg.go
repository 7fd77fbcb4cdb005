package service

import (
	"github.com/shopspring/decimal"
	"github.com/zono819/ratio-arb/internal/domain/entity"
)

// BookData exposes the top of one instrument's order book
type BookData interface {
	// HasBids reports whether at least one bid is resting
	HasBids() bool

	// HasOffers reports whether at least one offer is resting
	HasOffers() bool

	TopBidSize() decimal.Decimal
	TopBidPrice() decimal.Decimal
	TopOfferSize() decimal.Decimal
	TopOfferPrice() decimal.Decimal
}

// Side is one side of a leg
type Side interface {
	// Book returns the latest book snapshot, nil if none was received
	Book() BookData

	// Instrument returns the instrument traded on this side
	Instrument() *entity.Instrument
}

// Leg pairs a buy side and a sell side for one instrument
type Leg interface {
	// Name identifies the leg, e.g. "AL30"
	Name() string

	// BuyPrice returns the implied price when buying through the leg, zero if unavailable
	BuyPrice() decimal.Decimal

	// SellPrice returns the implied price when selling through the leg, zero if unavailable
	SellPrice() decimal.Decimal

	// Last returns the implied last traded price, zero if unavailable
	Last() decimal.Decimal

	Buy() Side
	Sell() Side

	// RefreshData pulls fresh quotes for both sides
	RefreshData()
}
