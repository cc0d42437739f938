package riskgate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/pkg/engine/model"
)

var errNoReferencePrice = errors.New("price collar: no reference price available")

// PriceCollarRule keeps limit prices within a percentage band around the
// reference price. Market orders are exempt. A missing reference price
// fails closed.
type PriceCollarRule struct {
	// DefaultPct applies to owners whose limits carry no collar of their
	// own. Zero disables the default.
	DefaultPct decimal.Decimal
}

func (r *PriceCollarRule) Name() string { return "price_collar" }

func (r *PriceCollarRule) Check(o *model.Order, snap *Snapshot) error {
	if o.Type != model.OrderTypeLimit && o.Type != model.OrderTypeStopLimit {
		return nil
	}
	pct := r.DefaultPct
	if snap.Limits != nil && snap.Limits.CollarPct.IsPositive() {
		pct = snap.Limits.CollarPct
	}
	if !pct.IsPositive() {
		return nil
	}
	if !snap.HasRefPrice {
		return errNoReferencePrice
	}

	band := snap.RefPrice.Mul(pct)
	floor := snap.RefPrice.Sub(band)
	ceil := snap.RefPrice.Add(band)

	if o.Price.LessThan(floor) || o.Price.GreaterThan(ceil) {
		return fmt.Errorf("price %s outside collar [%s, %s]", o.Price, floor, ceil)
	}
	return nil
}
