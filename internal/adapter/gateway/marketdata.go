package gateway

import (
	"context"

	"github.com/zono819/ratio-arb/internal/domain/entity"
)

// BookSource returns the latest book snapshot for a symbol
type BookSource interface {
	// Snapshot returns a copy of the latest book, false if none was received
	Snapshot(symbol string) (*entity.MarketData, bool)
}

// MarketDataGateway defines market data feed interface
type MarketDataGateway interface {
	// Connect establishes connection to the feed
	Connect(ctx context.Context) error

	// Disconnect closes connection
	Disconnect(ctx context.Context) error

	// Subscribe requests top of book, offers and last trade for instruments
	Subscribe(ctx context.Context, instruments []*entity.Instrument) error

	// OnMarketData registers a handler for incoming book updates
	OnMarketData(handler func(*entity.MarketData))
}
