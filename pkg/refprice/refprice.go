package refprice

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Feed supplies the last known reference price and observed market volume
// per instrument. The engine reads it for price-collar checks and the
// scheduler reads it for participation-of-volume sizing.
type Feed interface {
	LastPrice(symbol string) (decimal.Decimal, bool)
	Volume(symbol string) decimal.Decimal
}

type MemoryFeed struct {
	mu      sync.RWMutex
	prices  map[string]decimal.Decimal
	volumes map[string]decimal.Decimal
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		prices:  make(map[string]decimal.Decimal),
		volumes: make(map[string]decimal.Decimal),
	}
}

func (f *MemoryFeed) LastPrice(symbol string) (decimal.Decimal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[symbol]
	return p, ok
}

func (f *MemoryFeed) Volume(symbol string) decimal.Decimal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.volumes[symbol]
}

func (f *MemoryFeed) SetPrice(symbol string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

func (f *MemoryFeed) AddVolume(symbol string, qty decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[symbol] = f.volumes[symbol].Add(qty)
}
