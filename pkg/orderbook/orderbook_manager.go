package orderbook

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a read-only view of one instrument's book.
type Snapshot struct {
	Symbol       string
	BestBid      decimal.Decimal
	BestBidQty   decimal.Decimal
	HasBid       bool
	BestAsk      decimal.Decimal
	BestAskQty   decimal.Decimal
	HasAsk       bool
	LastTrade    decimal.Decimal
	HasLastTrade bool
	Volume       decimal.Decimal
	Taken        time.Time
}

// Manager owns one book per instrument. Books are created on first use
// and live for the lifetime of the manager.
type Manager struct {
	books sync.Map

	onStopTriggered func(symbol string, o *Order, res *SubmitResult)
	cbMu            sync.Mutex
}

func NewManager() *Manager {
	return &Manager{}
}

// RegisterStopCallback installs the handler invoked when a parked stop
// order triggers. Must be called before any stop order is submitted.
func (m *Manager) RegisterStopCallback(fn func(symbol string, o *Order, res *SubmitResult)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.onStopTriggered = fn

	m.books.Range(func(_, v any) bool {
		b := v.(*book)
		b.onStopTriggered = func(o *Order, res *SubmitResult) { fn(b.symbol, o, res) }
		return true
	})
}

func (m *Manager) Submit(o *Order) (*SubmitResult, error) {
	return m.getOrCreateBook(o.Symbol).submit(o)
}

func (m *Manager) Cancel(symbol, orderID string) error {
	return m.getOrCreateBook(symbol).cancel(orderID)
}

func (m *Manager) Snapshot(symbol string) Snapshot {
	b := m.getOrCreateBook(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Symbol:       symbol,
		LastTrade:    b.lastTrade,
		HasLastTrade: b.hasLast,
		Volume:       b.volume,
		Taken:        time.Now(),
	}
	snap.BestBid, snap.BestBidQty, snap.HasBid = b.bestPrice(BUY)
	snap.BestAsk, snap.BestAskQty, snap.HasAsk = b.bestPrice(SELL)
	return snap
}

// Volume is the cumulative traded quantity on one instrument.
func (m *Manager) Volume(symbol string) decimal.Decimal {
	b := m.getOrCreateBook(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

func (m *Manager) getOrCreateBook(symbol string) *book {
	if val, ok := m.books.Load(symbol); ok {
		return val.(*book)
	}

	b := newBook(symbol)
	m.cbMu.Lock()
	if m.onStopTriggered != nil {
		fn := m.onStopTriggered
		b.onStopTriggered = func(o *Order, res *SubmitResult) { fn(b.symbol, o, res) }
	}
	m.cbMu.Unlock()

	actual, _ := m.books.LoadOrStore(symbol, b)
	return actual.(*book)
}
