package engine

import (
	"context"
	"testing"

	"github.com/papertrade/engine/pkg/position"
	"github.com/papertrade/engine/pkg/refprice"
)

func TestMarketMakerQuotesAroundReferencePrice(t *testing.T) {
	positions := position.NewMemoryStore()
	positions.SetLimits("mm", &position.OwnerLimits{Tradable: true})
	feed := refprice.NewMemoryFeed()
	feed.SetPrice("AAPL", d("100"))

	e := NewEngine(Config{}, positions, feed, nil, nil, nil, nil)
	m := NewMarketMaker(e, feed, MarketMakerConfig{
		Symbol:    "AAPL",
		Owner:     "mm",
		Quantity:  d("50"),
		SpreadPct: d("0.01"),
	})

	m.Refresh(context.Background())

	snap := e.BookSnapshot("AAPL")
	if !snap.HasBid || !snap.BestBid.Equal(d("99")) {
		t.Errorf("best bid = %s (has=%v), want 99", snap.BestBid, snap.HasBid)
	}
	if !snap.HasAsk || !snap.BestAsk.Equal(d("101")) {
		t.Errorf("best ask = %s (has=%v), want 101", snap.BestAsk, snap.HasAsk)
	}

	// A second refresh replaces, not stacks, the quotes.
	m.Refresh(context.Background())
	snap = e.BookSnapshot("AAPL")
	if !snap.BestBidQty.Equal(d("50")) {
		t.Errorf("bid qty after refresh = %s, want a single 50 quote", snap.BestBidQty)
	}
	if !snap.BestAskQty.Equal(d("50")) {
		t.Errorf("ask qty after refresh = %s, want a single 50 quote", snap.BestAskQty)
	}
}
