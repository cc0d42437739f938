package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmitOrder is the request shape the surrounding system hands to the
// engine. The transport that produced it (REST, CLI, scheduler) is not
// the engine's concern.
type SubmitOrder struct {
	Symbol       string
	Owner        string
	Side         OrderSide
	Type         OrderType
	TimeInForce  OrderTimeInForce
	Price        decimal.Decimal
	StopPrice    decimal.Decimal
	Quantity     decimal.Decimal
	ParentID     string
	FeeRate      decimal.Decimal // overrides the engine rate when positive
	TransactTime time.Time
}
