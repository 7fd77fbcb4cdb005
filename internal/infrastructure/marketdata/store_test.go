package marketdata

import (
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zono819/ratio-arb/internal/domain/entity"
)

func book(symbol string, bid string, ts time.Time) *entity.MarketData {
	return &entity.MarketData{
		Symbol:    symbol,
		Bids:      []entity.OrderBookLevel{{Price: decimal.RequireFromString(bid), Size: decimal.NewFromInt(10)}},
		Timestamp: ts,
	}
}

func TestStore_UpdateAndSnapshot(t *testing.T) {
	s := NewStore()
	now := time.Now()

	_, ok := s.Snapshot("AL30")
	assert.False(t, ok)

	s.Update(book("AL30", "1000", now))
	md, ok := s.Snapshot("AL30")
	require.True(t, ok)
	assert.True(t, md.TopBidPrice().Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 1, s.Len())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	in := book("AL30", "1000", time.Now())
	s.Update(in)

	// mutating the caller's value or a snapshot must not leak into the store
	in.Bids[0].Price = decimal.NewFromInt(1)
	md, _ := s.Snapshot("AL30")
	md.Bids[0].Price = decimal.NewFromInt(2)

	again, _ := s.Snapshot("AL30")
	assert.True(t, again.TopBidPrice().Equal(decimal.NewFromInt(1000)))
}

func TestStore_DropsStaleUpdates(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Update(book("AL30", "1000", now))
	s.Update(book("AL30", "900", now.Add(-time.Second)))

	md, _ := s.Snapshot("AL30")
	assert.True(t, md.TopBidPrice().Equal(decimal.NewFromInt(1000)))

	s.Update(book("AL30", "1100", now.Add(time.Second)))
	md, _ = s.Snapshot("AL30")
	assert.True(t, md.TopBidPrice().Equal(decimal.NewFromInt(1100)))
}

func TestStore_IgnoresInvalid(t *testing.T) {
	s := NewStore()
	s.Update(nil)
	s.Update(&entity.MarketData{})
	assert.Equal(t, 0, s.Len())
}

func TestStore_Symbols(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Update(book("AL30", "1000", now))
	s.Update(book("AL30D", "1", now))

	syms := s.Symbols()
	sort.Strings(syms)
	assert.Equal(t, []string{"AL30", "AL30D"}, syms)
}
