package engine

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/pkg/engine/model"
)

// ExecProgress is a point-in-time view of how much of a parent (algo)
// order has executed across its child orders.
type ExecProgress struct {
	ParentID     string
	FilledQty    decimal.Decimal
	Notional     decimal.Decimal
	AvgFillPrice decimal.Decimal
	Commission   decimal.Decimal
	FillCount    int
	Revision     uint64

	// ChildFills is cumulative filled quantity per child order id.
	ChildFills map[string]decimal.Decimal
}

type execBucket struct {
	filledQty  decimal.Decimal
	notional   decimal.Decimal
	commission decimal.Decimal
	fillCount  int
	revision   uint64
	children   map[string]decimal.Decimal
}

// ExecState aggregates fills by parent id. RecordFill runs synchronously
// in the match path so a reader observing revision N sees every fill up
// to N.
type ExecState struct {
	mu      sync.RWMutex
	parents map[string]*execBucket
}

func NewExecState() *ExecState {
	return &ExecState{parents: make(map[string]*execBucket)}
}

func (s *ExecState) Register(parentID string) {
	if parentID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parents[parentID]; !ok {
		s.parents[parentID] = &execBucket{}
	}
}

func (s *ExecState) RecordFill(f model.Fill) {
	if f.ParentID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.parents[f.ParentID]
	if !ok {
		b = &execBucket{}
		s.parents[f.ParentID] = b
	}
	if b.children == nil {
		b.children = make(map[string]decimal.Decimal)
	}
	b.children[f.OrderID] = b.children[f.OrderID].Add(f.Quantity)
	b.filledQty = b.filledQty.Add(f.Quantity)
	b.notional = b.notional.Add(f.Notional())
	b.commission = b.commission.Add(f.Commission)
	b.fillCount++
	b.revision++
}

func (s *ExecState) Progress(parentID string) (ExecProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.parents[parentID]
	if !ok {
		return ExecProgress{}, false
	}
	p := ExecProgress{
		ParentID:   parentID,
		FilledQty:  b.filledQty,
		Notional:   b.notional,
		Commission: b.commission,
		FillCount:  b.fillCount,
		Revision:   b.revision,
	}
	if len(b.children) > 0 {
		p.ChildFills = make(map[string]decimal.Decimal, len(b.children))
		for id, qty := range b.children {
			p.ChildFills[id] = qty
		}
	}
	if b.filledQty.IsPositive() {
		p.AvgFillPrice = b.notional.Div(b.filledQty)
	}
	return p, true
}
