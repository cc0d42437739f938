package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillRecord is one execution as persisted. ExecID makes at-least-once
// delivery from the event stream idempotent.
type FillRecord struct {
	ExecID         string `gorm:"primaryKey"`
	OrderID        string
	CounterpartyID string
	ParentID       string
	Symbol         string
	Side           string
	Quantity       decimal.Decimal `gorm:"type:numeric"`
	Price          decimal.Decimal `gorm:"type:numeric"`
	Commission     decimal.Decimal `gorm:"type:numeric"`
	Timestamp      time.Time
	CreatedAt      time.Time
}

func (FillRecord) TableName() string { return "fills" }

// OrderEventRecord is one order status transition as persisted.
type OrderEventRecord struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID        string
	ParentID       string
	Symbol         string
	Owner          string
	Side           string
	Type           string
	Status         string
	Quantity       decimal.Decimal `gorm:"type:numeric"`
	FilledQuantity decimal.Decimal `gorm:"type:numeric"`
	AvgFillPrice   decimal.Decimal `gorm:"type:numeric"`
	RejectReasons  string
	EventTime      time.Time
	CreatedAt      time.Time
}

func (OrderEventRecord) TableName() string { return "order_events" }
