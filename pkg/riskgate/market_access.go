package riskgate

import (
	"errors"
	"fmt"

	"github.com/papertrade/engine/pkg/engine/model"
)

var (
	errOwnerNotTradable = errors.New("owner is not flagged tradable")
	errSessionClosed    = errors.New("market session is closed for instrument")
	errNoLimitRecord    = errors.New("no risk limit record for owner")
)

// MarketAccessRule checks the owner may trade at all, may trade this
// instrument, and that the simulated session is open. A missing limit
// record fails closed.
type MarketAccessRule struct{}

func (r *MarketAccessRule) Name() string { return "market_access" }

func (r *MarketAccessRule) Check(o *model.Order, snap *Snapshot) error {
	if snap.Limits == nil {
		return errNoLimitRecord
	}
	if !snap.Limits.Tradable {
		return errOwnerNotTradable
	}
	if len(snap.Limits.Approved) > 0 && !snap.Limits.Approved[o.Symbol] {
		return fmt.Errorf("instrument %s not in approved set", o.Symbol)
	}
	if !snap.SessionOpen {
		return errSessionClosed
	}
	return nil
}
