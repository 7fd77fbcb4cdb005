package entity

import (
	"github.com/shopspring/decimal"
)

// DefaultMarketID is the market bonds and dollar instruments are listed on
const DefaultMarketID = "ROFX"

// Instrument represents a listed instrument and how its quotes map to cash.
// PriceConversionFactor scales a quoted price to cash per unit of nominal,
// e.g. 0.01 for bonds quoted per 100 nominal.
type Instrument struct {
	Symbol                string
	MarketID              string
	PriceConversionFactor decimal.Decimal
}

// NewInstrument creates an instrument on the default market
func NewInstrument(symbol string, factor decimal.Decimal) *Instrument {
	return &Instrument{
		Symbol:                symbol,
		MarketID:              DefaultMarketID,
		PriceConversionFactor: factor,
	}
}

// Tradable returns true if quotes can be converted to cash
func (i *Instrument) Tradable() bool {
	return i != nil && i.PriceConversionFactor.IsPositive()
}
