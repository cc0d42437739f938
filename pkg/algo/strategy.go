package algo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/pkg/engine/model"
)

type StrategyKind string

const (
	TWAP    StrategyKind = "TWAP"
	VWAP    StrategyKind = "VWAP"
	Iceberg StrategyKind = "ICEBERG"
	POV     StrategyKind = "POV"
)

// ParentSpec describes an algorithmic parent order. Kind-specific fields
// are validated at registration, not at tick time.
type ParentSpec struct {
	Symbol   string
	Owner    string
	Side     model.OrderSide
	Kind     StrategyKind
	Quantity decimal.Decimal
	Start    time.Time
	End      time.Time

	// VWAP: intraday curve, StandardProfile when empty.
	Profile VolumeProfile

	// Iceberg: size of the single visible resting slice and its limit.
	// RefreshRatio, when positive, replaces a slice once that fraction of
	// it has filled; zero replaces only on complete fill.
	VisibleSize  decimal.Decimal
	LimitPrice   decimal.Decimal
	RefreshRatio decimal.Decimal

	// POV: fraction of observed interval volume to take, in (0, 1].
	Participation decimal.Decimal
}

// tickInput is everything a sizing function may consult on one tick.
type tickInput struct {
	now            time.Time
	filled         decimal.Decimal
	remaining      decimal.Decimal
	intervalVolume decimal.Decimal // market volume since previous tick
	childResting   bool            // an earlier slice still works the book
}

// sizer is the one strategy-specific decision: how much to emit now.
// The kind is resolved to a sizer once, at registration.
type sizer interface {
	size(spec *ParentSpec, in tickInput) decimal.Decimal
}

func newSizer(spec *ParentSpec) (sizer, error) {
	switch spec.Kind {
	case TWAP:
		return &twapSizer{}, nil
	case VWAP:
		profile := spec.Profile
		if len(profile) == 0 {
			profile = StandardProfile
		}
		if !profile.valid() {
			return nil, fmt.Errorf("vwap profile weights must be non-negative and sum to 1")
		}
		return &vwapSizer{profile: profile}, nil
	case Iceberg:
		if !spec.VisibleSize.IsPositive() {
			return nil, fmt.Errorf("iceberg requires a positive visible size")
		}
		if !spec.LimitPrice.IsPositive() {
			return nil, fmt.Errorf("iceberg requires a positive limit price")
		}
		if spec.RefreshRatio.IsNegative() || spec.RefreshRatio.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("iceberg refresh ratio must be in [0, 1]")
		}
		return &icebergSizer{}, nil
	case POV:
		one := decimal.NewFromInt(1)
		if !spec.Participation.IsPositive() || spec.Participation.GreaterThan(one) {
			return nil, fmt.Errorf("participation rate must be in (0, 1]")
		}
		return &povSizer{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", spec.Kind)
	}
}

// windowFraction is elapsed window time in [0, 1].
func windowFraction(spec *ParentSpec, now time.Time) decimal.Decimal {
	total := spec.End.Sub(spec.Start).Milliseconds()
	if total <= 0 {
		return decimal.NewFromInt(1)
	}
	elapsed := now.Sub(spec.Start).Milliseconds()
	if elapsed <= 0 {
		return decimal.Zero
	}
	if elapsed >= total {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(elapsed).Div(decimal.NewFromInt(total))
}

// twapSizer keeps cumulative fills on the linear target line.
type twapSizer struct{}

func (s *twapSizer) size(spec *ParentSpec, in tickInput) decimal.Decimal {
	target := spec.Quantity.Mul(windowFraction(spec, in.now))
	return clip(target.Sub(in.filled), in.remaining)
}

// vwapSizer tracks the profile's cumulative weight line instead.
type vwapSizer struct {
	profile VolumeProfile
}

func (s *vwapSizer) size(spec *ParentSpec, in tickInput) decimal.Decimal {
	target := spec.Quantity.Mul(s.profile.cumulative(windowFraction(spec, in.now)))
	return clip(target.Sub(in.filled), in.remaining)
}

// icebergSizer keeps exactly one visible slice resting at a time.
type icebergSizer struct{}

func (s *icebergSizer) size(spec *ParentSpec, in tickInput) decimal.Decimal {
	if in.childResting {
		return decimal.Zero
	}
	return clip(spec.VisibleSize, in.remaining)
}

// povSizer takes a fixed share of the volume traded since the last tick.
type povSizer struct{}

func (s *povSizer) size(spec *ParentSpec, in tickInput) decimal.Decimal {
	return clip(spec.Participation.Mul(in.intervalVolume), in.remaining)
}

func clip(qty, remaining decimal.Decimal) decimal.Decimal {
	if qty.GreaterThan(remaining) {
		qty = remaining
	}
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}
