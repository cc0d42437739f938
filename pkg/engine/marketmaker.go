package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/papertrade/engine/pkg/engine/model"
	"github.com/papertrade/engine/pkg/refprice"
)

type MarketMakerConfig struct {
	Symbol   string
	Owner    string
	Quantity decimal.Decimal
	// SpreadPct is the half-spread around the reference price,
	// e.g. 0.01 quotes at ref*0.99 / ref*1.01.
	SpreadPct decimal.Decimal
	Interval  time.Duration
}

// MarketMaker keeps a two-sided quote resting around the reference price
// so simulated sessions have standing liquidity. Quotes go through the
// normal admission path under the maker's own limits.
type MarketMaker struct {
	engine *Engine
	feed   refprice.Feed
	cfg    MarketMakerConfig

	bidID string
	askID string
}

func NewMarketMaker(e *Engine, feed refprice.Feed, cfg MarketMakerConfig) *MarketMaker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &MarketMaker{engine: e, feed: feed, cfg: cfg}
}

func (m *MarketMaker) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

// Refresh pulls the previous quotes and re-rests them around the current
// reference price. No reference price means no quote.
func (m *MarketMaker) Refresh(ctx context.Context) {
	ref, ok := m.referencePrice()
	if !ok {
		return
	}

	for _, id := range []string{m.bidID, m.askID} {
		if id == "" {
			continue
		}
		if _, err := m.engine.CancelOrder(ctx, id); err != nil {
			m.engine.log.Warn(ctx, "pull quote failed",
				zap.String("order_id", id),
				zap.Error(err))
		}
	}
	m.bidID = ""
	m.askID = ""

	band := ref.Mul(m.cfg.SpreadPct)
	m.bidID = m.quote(ctx, model.OrderSideBuy, ref.Sub(band))
	m.askID = m.quote(ctx, model.OrderSideSell, ref.Add(band))
}

func (m *MarketMaker) quote(ctx context.Context, side model.OrderSide, price decimal.Decimal) string {
	ord, err := m.engine.SubmitOrder(ctx, &model.SubmitOrder{
		Symbol:      m.cfg.Symbol,
		Owner:       m.cfg.Owner,
		Side:        side,
		Type:        model.OrderTypeLimit,
		TimeInForce: model.OrderTimeInForceGTC,
		Price:       price,
		Quantity:    m.cfg.Quantity,
	})
	if err != nil || ord.IsTerminal() {
		return ""
	}
	return ord.OrderID
}

func (m *MarketMaker) referencePrice() (decimal.Decimal, bool) {
	if snap := m.engine.BookSnapshot(m.cfg.Symbol); snap.HasLastTrade {
		return snap.LastTrade, true
	}
	if m.feed != nil {
		return m.feed.LastPrice(m.cfg.Symbol)
	}
	return decimal.Zero, false
}
