package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReadinessStatus tells whether a ratio trade has the book data it needs
type ReadinessStatus string

const (
	ReadinessReady       ReadinessStatus = "ready"
	ReadinessMissingSide ReadinessStatus = "missing_side"
	ReadinessEmptyBook   ReadinessStatus = "empty_book"
)

// SideRole names one of the four book sides a ratio trade reads
type SideRole string

const (
	RoleNone SideRole = ""
	// RoleOwnedSell is where the held instrument is sold (bids)
	RoleOwnedSell SideRole = "owned_sell"
	// RoleOwnedBuy is where the held instrument is bought back (offers)
	RoleOwnedBuy SideRole = "owned_buy"
	// RoleArbBuy is where the cheap instrument is bought (offers)
	RoleArbBuy SideRole = "arb_buy"
	// RoleArbSell is where the cheap instrument is sold (bids)
	RoleArbSell SideRole = "arb_sell"
)

// RatioSnapshot is a point-in-time read of a ratio trade
type RatioSnapshot struct {
	Name            string
	Profit          decimal.Decimal
	ProfitLast      decimal.Decimal
	MaxTradableSize decimal.Decimal
	Status          ReadinessStatus
	Role            SideRole
	Timestamp       time.Time
}

// Ready returns true if the book data needed for sizing was present
func (s *RatioSnapshot) Ready() bool {
	return s.Status == ReadinessReady
}

// ProfitBps returns best-quote profit in basis points
func (s *RatioSnapshot) ProfitBps() decimal.Decimal {
	return s.Profit.Mul(decimal.NewFromInt(10000))
}
