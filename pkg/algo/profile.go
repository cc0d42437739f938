package algo

import "github.com/shopspring/decimal"

// A VolumeProfile is a historical intraday volume curve: per-bucket
// weights over the parent's time window, summing to one. VWAP slices
// track the cumulative weight line instead of the uniform line.
type VolumeProfile []decimal.Decimal

func dd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// StandardProfile is the usual U-shaped session: heavy open and close,
// quiet midday.
var StandardProfile = VolumeProfile{
	dd("0.12"), dd("0.10"), dd("0.08"), dd("0.07"), dd("0.06"), dd("0.06"),
	dd("0.06"), dd("0.06"), dd("0.07"), dd("0.08"), dd("0.10"), dd("0.14"),
}

// AggressiveProfile front-loads execution into the early buckets.
var AggressiveProfile = VolumeProfile{
	dd("0.20"), dd("0.16"), dd("0.12"), dd("0.10"), dd("0.08"), dd("0.07"),
	dd("0.06"), dd("0.05"), dd("0.05"), dd("0.04"), dd("0.04"), dd("0.03"),
}

// PassiveProfile is the mirror: most quantity near the close.
var PassiveProfile = VolumeProfile{
	dd("0.03"), dd("0.04"), dd("0.04"), dd("0.05"), dd("0.05"), dd("0.06"),
	dd("0.07"), dd("0.08"), dd("0.10"), dd("0.12"), dd("0.16"), dd("0.20"),
}

func (p VolumeProfile) valid() bool {
	if len(p) == 0 {
		return false
	}
	sum := decimal.Zero
	for _, w := range p {
		if w.IsNegative() {
			return false
		}
		sum = sum.Add(w)
	}
	return sum.Equal(decimal.NewFromInt(1))
}

// cumulative maps elapsed-window fraction to the share of total quantity
// that should be executed by then, interpolating inside the bucket.
func (p VolumeProfile) cumulative(frac decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if frac.GreaterThanOrEqual(one) {
		return one
	}
	if !frac.IsPositive() {
		return decimal.Zero
	}

	n := decimal.NewFromInt(int64(len(p)))
	pos := frac.Mul(n)
	idx := int(pos.IntPart())
	if idx >= len(p) {
		return one
	}

	cum := decimal.Zero
	for i := 0; i < idx; i++ {
		cum = cum.Add(p[i])
	}
	within := pos.Sub(decimal.NewFromInt(int64(idx)))
	return cum.Add(p[idx].Mul(within))
}
