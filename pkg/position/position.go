package position

import (
	"sync"

	"github.com/shopspring/decimal"
)

// OwnerLimits is the risk-limit record for one owner, read by the risk
// gate before every acceptance.
type OwnerLimits struct {
	Tradable bool

	// Approved is the owner's tradable instrument set; empty means
	// unrestricted.
	Approved map[string]bool

	MinOrderSize decimal.Decimal // zero = no minimum
	MaxOrderSize decimal.Decimal // zero = no maximum

	// CollarPct is the allowed band around the reference price for limit
	// orders, e.g. 0.1 = +/-10%. Zero disables the collar.
	CollarPct decimal.Decimal

	PositionLimits map[string]decimal.Decimal // symbol -> max |net position|
	SectorLimits   map[string]decimal.Decimal // sector -> max |net position|
}

// Store is the position/limit collaborator. Writes happen only inside the
// per-instrument serialized submission path; persistence beyond process
// lifetime is the surrounding system's concern.
type Store interface {
	Position(owner, symbol string) decimal.Decimal
	SectorPosition(owner, sector string) decimal.Decimal
	Apply(owner, symbol string, delta decimal.Decimal)
	Limits(owner string) (*OwnerLimits, bool)
	Sector(symbol string) string
}

type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]map[string]decimal.Decimal // owner -> symbol -> net position
	limits    map[string]*OwnerLimits
	sectors   map[string]string // symbol -> sector
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]map[string]decimal.Decimal),
		limits:    make(map[string]*OwnerLimits),
		sectors:   make(map[string]string),
	}
}

func (s *MemoryStore) Position(owner, symbol string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions[owner][symbol]
}

func (s *MemoryStore) SectorPosition(owner, sector string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for symbol, pos := range s.positions[owner] {
		if s.sectors[symbol] == sector {
			total = total.Add(pos)
		}
	}
	return total
}

func (s *MemoryStore) Apply(owner, symbol string, delta decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byOwner := s.positions[owner]
	if byOwner == nil {
		byOwner = make(map[string]decimal.Decimal)
		s.positions[owner] = byOwner
	}
	byOwner[symbol] = byOwner[symbol].Add(delta)
}

func (s *MemoryStore) Limits(owner string) (*OwnerLimits, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.limits[owner]
	return l, ok
}

func (s *MemoryStore) Sector(symbol string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sectors[symbol]
}

func (s *MemoryStore) SetLimits(owner string, limits *OwnerLimits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[owner] = limits
}

func (s *MemoryStore) SetSector(symbol, sector string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectors[symbol] = sector
}
