package orderbook

import "github.com/shopspring/decimal"

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

type OrderType string

const (
	LIMIT     OrderType = "LIMIT"
	MARKET    OrderType = "MARKET"
	STOP      OrderType = "STOP"
	STOPLIMIT OrderType = "STOP_LIMIT"
)

type TimeInForce string

const (
	DAY TimeInForce = "DAY"
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
)

// Order is the book-side view of an order. Qty is the open (unmatched)
// quantity and is decremented as the order matches; the full lifecycle
// record lives in the engine model.
type Order struct {
	ID          string
	Symbol      string
	Side        Side
	Price       decimal.Decimal // limit price; ignored for MARKET
	StopPrice   decimal.Decimal // for STOP / STOP_LIMIT
	Qty         decimal.Decimal
	Type        OrderType
	TimeInForce TimeInForce

	cancelled bool
}
