package riskgate

import (
	"fmt"

	"github.com/papertrade/engine/pkg/engine/model"
)

// PositionLimitRule rejects orders whose full fill would push the owner's
// net position past the configured instrument or sector limit.
type PositionLimitRule struct{}

func (r *PositionLimitRule) Name() string { return "position_limit" }

func (r *PositionLimitRule) Check(o *model.Order, snap *Snapshot) error {
	if snap.Limits == nil {
		return nil
	}

	delta := signedQty(o)

	if limit, ok := snap.Limits.PositionLimits[o.Symbol]; ok {
		projected := snap.Position.Add(delta)
		if projected.Abs().GreaterThan(limit) {
			return fmt.Errorf("position limit exceeded: projected %s, limit %s", projected, limit)
		}
	}

	if snap.Sector != "" {
		if limit, ok := snap.Limits.SectorLimits[snap.Sector]; ok {
			projected := snap.SectorPosition.Add(delta)
			if projected.Abs().GreaterThan(limit) {
				return fmt.Errorf("sector position limit exceeded: %s projected %s, limit %s", snap.Sector, projected, limit)
			}
		}
	}

	return nil
}
