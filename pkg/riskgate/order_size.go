package riskgate

import (
	"fmt"

	"github.com/papertrade/engine/pkg/engine/model"
)

// OrderSizeRule keeps order quantity within the owner's configured bounds.
type OrderSizeRule struct{}

func (r *OrderSizeRule) Name() string { return "order_size" }

func (r *OrderSizeRule) Check(o *model.Order, snap *Snapshot) error {
	if snap.Limits == nil {
		return nil
	}

	if snap.Limits.MinOrderSize.IsPositive() && o.Quantity.LessThan(snap.Limits.MinOrderSize) {
		return fmt.Errorf("order quantity below minimum: %s < %s", o.Quantity, snap.Limits.MinOrderSize)
	}
	if snap.Limits.MaxOrderSize.IsPositive() && o.Quantity.GreaterThan(snap.Limits.MaxOrderSize) {
		return fmt.Errorf("order quantity exceeds maximum: %s > %s", o.Quantity, snap.Limits.MaxOrderSize)
	}
	return nil
}
