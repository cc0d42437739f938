package riskgate

import "sync"

// SessionCalendar answers whether the simulated market session is open
// for an instrument.
type SessionCalendar interface {
	IsOpen(symbol string) bool
}

// AlwaysOpen is the default continuous-session calendar.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(string) bool { return true }

// MemoryCalendar holds explicit per-instrument session state; instruments
// never set are closed.
type MemoryCalendar struct {
	mu   sync.RWMutex
	open map[string]bool
}

func NewMemoryCalendar() *MemoryCalendar {
	return &MemoryCalendar{open: make(map[string]bool)}
}

func (c *MemoryCalendar) IsOpen(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open[symbol]
}

func (c *MemoryCalendar) SetOpen(symbol string, open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[symbol] = open
}
