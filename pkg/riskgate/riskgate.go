package riskgate

import (
	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/pkg/engine/model"
	"github.com/papertrade/engine/pkg/position"
)

// Snapshot is the state the gate judges an order against. It is built by
// the caller inside the instrument's serialization point, so a passed
// check cannot be invalidated by a concurrent fill.
type Snapshot struct {
	Position       decimal.Decimal
	Sector         string
	SectorPosition decimal.Decimal
	Limits         *position.OwnerLimits
	RefPrice       decimal.Decimal
	HasRefPrice    bool
	SessionOpen    bool
}

// Rule is one independent pre-trade check. A nil error is a pass.
type Rule interface {
	Name() string
	Check(o *model.Order, snap *Snapshot) error
}

// Gate runs the full rule battery and collects every failure, so a
// rejected order carries its complete reason set.
type Gate struct {
	rules []Rule
}

func NewGate(rules ...Rule) *Gate {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Gate{rules: rules}
}

func DefaultRules() []Rule {
	return []Rule{
		&PositionLimitRule{},
		&OrderSizeRule{},
		&PriceCollarRule{},
		&MarketAccessRule{},
	}
}

// Validate is a pure function over the snapshot: it never mutates state.
func (g *Gate) Validate(o *model.Order, snap *Snapshot) (bool, []string) {
	var reasons []string
	for _, r := range g.rules {
		if err := r.Check(o, snap); err != nil {
			reasons = append(reasons, err.Error())
		}
	}
	return len(reasons) == 0, reasons
}

// signedQty is the position delta a full fill of the order would cause.
func signedQty(o *model.Order) decimal.Decimal {
	if o.Side == model.OrderSideSell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}
