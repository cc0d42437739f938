package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one execution. Immutable once created; the engine only ever
// appends fills, never rewrites them.
type Fill struct {
	ExecID         string
	OrderID        string
	CounterpartyID string
	ParentID       string
	Symbol         string
	Side           OrderSide
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	Commission     decimal.Decimal
	Timestamp      time.Time
}

// Notional is the traded value of the fill.
func (f *Fill) Notional() decimal.Decimal {
	return f.Quantity.Mul(f.Price)
}
