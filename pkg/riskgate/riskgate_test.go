package riskgate

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/pkg/engine/model"
	"github.com/papertrade/engine/pkg/position"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func openLimits() *position.OwnerLimits {
	return &position.OwnerLimits{
		Tradable:       true,
		MinOrderSize:   d("1"),
		MaxOrderSize:   d("1000"),
		CollarPct:      d("0.1"),
		PositionLimits: map[string]decimal.Decimal{"TST": d("500")},
		SectorLimits:   map[string]decimal.Decimal{"tech": d("800")},
	}
}

func buyLimit(qty, price string) *model.Order {
	return &model.Order{
		OrderID:  "O1",
		Symbol:   "TST",
		Owner:    "alice",
		Side:     model.OrderSideBuy,
		Type:     model.OrderTypeLimit,
		Price:    d(price),
		Quantity: d(qty),
	}
}

func okSnapshot() *Snapshot {
	return &Snapshot{
		Limits:      openLimits(),
		RefPrice:    d("100"),
		HasRefPrice: true,
		SessionOpen: true,
	}
}

func TestValidateAccepts(t *testing.T) {
	g := NewGate()

	ok, reasons := g.Validate(buyLimit("100", "100"), okSnapshot())
	if !ok || len(reasons) != 0 {
		t.Fatalf("expected accept, got %v", reasons)
	}
}

func TestAllFailuresCollected(t *testing.T) {
	g := NewGate()

	snap := okSnapshot()
	snap.Limits.Tradable = false
	snap.Position = d("450")

	// breaches position limit, max size, and collar, plus access flag
	ok, reasons := g.Validate(buyLimit("2000", "200"), snap)
	if ok {
		t.Fatalf("expected rejection")
	}
	if len(reasons) != 4 {
		t.Fatalf("expected 4 collected reasons, got %d: %v", len(reasons), reasons)
	}
}

func TestPositionLimitProjected(t *testing.T) {
	g := NewGate()

	snap := okSnapshot()
	snap.Position = d("450")

	ok, _ := g.Validate(buyLimit("100", "100"), snap)
	if ok {
		t.Errorf("projected position 550 must breach limit 500")
	}

	sell := buyLimit("100", "100")
	sell.Side = model.OrderSideSell
	if ok, reasons := g.Validate(sell, snap); !ok {
		t.Errorf("sell reducing position must pass, got %v", reasons)
	}
}

func TestSectorLimit(t *testing.T) {
	g := NewGate()

	snap := okSnapshot()
	snap.Sector = "tech"
	snap.SectorPosition = d("750")

	ok, reasons := g.Validate(buyLimit("100", "100"), snap)
	if ok {
		t.Fatalf("expected sector breach")
	}
	if !strings.Contains(strings.Join(reasons, ";"), "sector") {
		t.Errorf("expected sector reason, got %v", reasons)
	}
}

func TestOrderSizeBounds(t *testing.T) {
	g := NewGate()

	if ok, _ := g.Validate(buyLimit("0.5", "100"), okSnapshot()); ok {
		t.Errorf("below minimum must fail")
	}
	if ok, _ := g.Validate(buyLimit("1001", "100"), okSnapshot()); ok {
		t.Errorf("above maximum must fail")
	}
}

func TestPriceCollar(t *testing.T) {
	g := NewGate()

	if ok, _ := g.Validate(buyLimit("10", "111"), okSnapshot()); ok {
		t.Errorf("price above collar must fail")
	}
	if ok, reasons := g.Validate(buyLimit("10", "110"), okSnapshot()); !ok {
		t.Errorf("price on collar edge must pass, got %v", reasons)
	}

	// market orders are exempt
	mkt := buyLimit("10", "0")
	mkt.Type = model.OrderTypeMarket
	if ok, reasons := g.Validate(mkt, okSnapshot()); !ok {
		t.Errorf("market order must skip collar, got %v", reasons)
	}
}

func TestCollarDefaultPctForOwnersWithoutOwn(t *testing.T) {
	r := &PriceCollarRule{DefaultPct: d("0.05")}

	snap := okSnapshot()
	snap.Limits.CollarPct = decimal.Zero

	if err := r.Check(buyLimit("10", "106"), snap); err == nil {
		t.Errorf("price outside default collar must fail")
	}
	if err := r.Check(buyLimit("10", "104"), snap); err != nil {
		t.Errorf("price inside default collar must pass, got %v", err)
	}

	// An owner's own collar overrides the default.
	snap.Limits.CollarPct = d("0.1")
	if err := r.Check(buyLimit("10", "108"), snap); err != nil {
		t.Errorf("owner collar 0.1 must admit 108, got %v", err)
	}
}

func TestCollarFailsClosedWithoutReferencePrice(t *testing.T) {
	g := NewGate()

	snap := okSnapshot()
	snap.HasRefPrice = false

	ok, reasons := g.Validate(buyLimit("10", "100"), snap)
	if ok {
		t.Fatalf("missing reference price must reject, got pass")
	}
	if !strings.Contains(strings.Join(reasons, ";"), "reference price") {
		t.Errorf("expected reference price reason, got %v", reasons)
	}
}

func TestMarketAccess(t *testing.T) {
	g := NewGate()

	snap := okSnapshot()
	snap.Limits.Approved = map[string]bool{"OTHER": true}
	if ok, _ := g.Validate(buyLimit("10", "100"), snap); ok {
		t.Errorf("instrument outside approved set must fail")
	}

	snap = okSnapshot()
	snap.SessionOpen = false
	if ok, _ := g.Validate(buyLimit("10", "100"), snap); ok {
		t.Errorf("closed session must fail")
	}

	snap = okSnapshot()
	snap.Limits = nil
	if ok, _ := g.Validate(buyLimit("10", "100"), snap); ok {
		t.Errorf("missing limit record must fail closed")
	}
}
