package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "Pending"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

type OrderTimeInForce string

const (
	OrderTimeInForceDAY OrderTimeInForce = "DAY"
	OrderTimeInForceGTC OrderTimeInForce = "GTC"
	OrderTimeInForceIOC OrderTimeInForce = "IOC"
	OrderTimeInForceFOK OrderTimeInForce = "FOK"
)

// Order is the engine-side lifecycle record. The book holds only the open
// remainder; cumulative state lives here and is mutated only by the
// matching engine under the instrument's serialization point.
type Order struct {
	OrderID string

	// init info
	Symbol       string
	Owner        string
	Side         OrderSide
	Type         OrderType
	TimeInForce  OrderTimeInForce
	Price        decimal.Decimal
	StopPrice    decimal.Decimal
	Quantity     decimal.Decimal
	ParentID     string
	FeeRate      decimal.Decimal
	TransactTime time.Time

	// calculated info
	Status         OrderStatus
	FilledQuantity decimal.Decimal
	AvgFillPrice   decimal.Decimal
	RejectReasons  []string

	fillNotional decimal.Decimal
}

// IsTerminal reports whether the order can no longer change.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

func (o *Order) CanCancel() bool {
	return !o.IsTerminal()
}

func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// ApplyFill folds one fill into the cumulative state. Status moves
// forward only: Pending -> PartiallyFilled -> Filled.
func (o *Order) ApplyFill(qty, price decimal.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.fillNotional = o.fillNotional.Add(qty.Mul(price))
	if o.FilledQuantity.IsPositive() {
		o.AvgFillPrice = o.fillNotional.Div(o.FilledQuantity)
	}

	if o.FilledQuantity.GreaterThanOrEqual(o.Quantity) {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}

// Reject marks the order terminally rejected with the given reasons.
func (o *Order) Reject(reasons ...string) {
	o.Status = OrderStatusRejected
	o.RejectReasons = append(o.RejectReasons, reasons...)
}
