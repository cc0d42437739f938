package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func limit(id string, side Side, price, qty string) *Order {
	return &Order{ID: id, Symbol: "TST", Side: side, Price: d(price), Qty: d(qty), Type: LIMIT, TimeInForce: GTC}
}

func market(id string, side Side, qty string) *Order {
	return &Order{ID: id, Symbol: "TST", Side: side, Qty: d(qty), Type: MARKET}
}

func TestSimpleMatch(t *testing.T) {
	b := newBook("TST")

	if _, err := b.submit(limit("S1", SELL, "99", "10")); err != nil {
		t.Fatal(err)
	}
	res, err := b.submit(limit("B1", BUY, "100", "10"))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(res.Fills))
	}
	f := res.Fills[0]
	if f.OrderID != "B1" || f.CounterOrderID != "S1" {
		t.Errorf("incorrect order ids in fill: %+v", f)
	}
	if !f.Qty.Equal(d("10")) || !f.Price.Equal(d("99")) {
		t.Errorf("incorrect qty/price: %+v", f)
	}
	if !res.Remaining.IsZero() || res.Rested {
		t.Errorf("expected fully matched order, got %+v", res)
	}
}

func TestNoMatchDueToPrice(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "10"))
	res, _ := b.submit(limit("B1", BUY, "98", "10"))

	if len(res.Fills) != 0 {
		t.Fatalf("expected no fills, got %d", len(res.Fills))
	}
	if !res.Rested {
		t.Errorf("expected buy order to rest")
	}
}

func TestPartialMatch(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "5"))
	res, _ := b.submit(limit("B1", BUY, "101", "10"))

	if len(res.Fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(res.Fills))
	}
	if !res.Fills[0].Qty.Equal(d("5")) {
		t.Errorf("expected matched qty 5, got %s", res.Fills[0].Qty)
	}
	if !res.Remaining.Equal(d("5")) || !res.Rested {
		t.Errorf("expected remainder 5 to rest, got %+v", res)
	}
}

func TestFIFOMatchSamePrice(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "5"))
	b.submit(limit("S2", SELL, "100", "5"))

	res, _ := b.submit(limit("B1", BUY, "100", "10"))
	if len(res.Fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(res.Fills))
	}
	if res.Fills[0].CounterOrderID != "S1" || res.Fills[1].CounterOrderID != "S2" {
		t.Errorf("expected FIFO match order, got %+v", res.Fills)
	}
}

func TestMultiLevelMatchBestPriceFirst(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "101", "5"))
	b.submit(limit("S2", SELL, "102", "5"))
	b.submit(limit("S3", SELL, "103", "5"))

	res, _ := b.submit(limit("B1", BUY, "105", "15"))
	if len(res.Fills) != 3 {
		t.Fatalf("expected 3 fills, got %d", len(res.Fills))
	}
	if !res.Fills[0].Price.Equal(d("101")) || !res.Fills[2].Price.Equal(d("103")) {
		t.Errorf("expected matching from best price, got %+v", res.Fills)
	}
}

func TestMarketOrderRemainderNeverRests(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("B1", BUY, "50", "40"))
	res, _ := b.submit(market("M1", SELL, "50"))

	if len(res.Fills) != 1 || !res.Fills[0].Qty.Equal(d("40")) {
		t.Fatalf("expected single fill of 40, got %+v", res.Fills)
	}
	if !res.Remaining.Equal(d("10")) {
		t.Errorf("expected remainder 10, got %s", res.Remaining)
	}
	if res.Rested {
		t.Errorf("market remainder must not rest")
	}
	if _, _, ok := b.bestPrice(SELL); ok {
		t.Errorf("ask side must stay empty")
	}
}

func TestMarketOrderEmptyBook(t *testing.T) {
	b := newBook("TST")

	res, _ := b.submit(market("M1", BUY, "10"))
	if len(res.Fills) != 0 || !res.Remaining.Equal(d("10")) || res.Rested {
		t.Errorf("expected untouched remainder, got %+v", res)
	}
}

func TestNoCrossAfterMatching(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("B1", BUY, "50", "100"))
	b.submit(limit("B2", BUY, "49", "100"))
	b.submit(limit("S1", SELL, "50", "60"))
	b.submit(limit("S2", SELL, "52", "40"))

	bid, _, hasBid := b.bestPrice(BUY)
	ask, _, hasAsk := b.bestPrice(SELL)
	if !hasBid || !hasAsk {
		t.Fatalf("expected both sides populated")
	}
	if !bid.LessThan(ask) {
		t.Errorf("book crossed: bid %s >= ask %s", bid, ask)
	}
}

func TestFillConservation(t *testing.T) {
	b := newBook("TST")

	orders := []*Order{
		limit("S1", SELL, "100", "7"),
		limit("S2", SELL, "101", "13"),
		limit("B1", BUY, "102", "9"),
		limit("B2", BUY, "101", "15"),
		market("M1", SELL, "6"),
	}

	total := decimal.Zero
	matched := map[string]decimal.Decimal{}
	for _, o := range orders {
		submitted := o.Qty
		res, err := b.submit(o)
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range res.Fills {
			total = total.Add(f.Qty)
			matched[f.OrderID] = matched[f.OrderID].Add(f.Qty)
			matched[f.CounterOrderID] = matched[f.CounterOrderID].Add(f.Qty)
		}
		if matched[o.ID].GreaterThan(submitted) {
			t.Errorf("order %s overfilled: %s > %s", o.ID, matched[o.ID], submitted)
		}
	}

	if !b.volume.Equal(total) {
		t.Errorf("tape volume %s != summed fills %s", b.volume, total)
	}
}

func TestCancelRestingOrder(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "10"))
	if err := b.cancel("S1"); err != nil {
		t.Fatal(err)
	}

	// the cancelled order must be invisible to matching
	res, _ := b.submit(limit("B1", BUY, "100", "10"))
	if len(res.Fills) != 0 {
		t.Errorf("matched against cancelled order: %+v", res.Fills)
	}

	if err := b.cancel("S1"); err != ErrOrderNotFound {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCancelUpdatesBestPrice(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "10"))
	b.submit(limit("S2", SELL, "101", "10"))
	b.cancel("S1")

	ask, _, ok := b.bestPrice(SELL)
	if !ok || !ask.Equal(d("101")) {
		t.Errorf("expected best ask 101 after cancel, got %s ok=%v", ask, ok)
	}
}

func TestFOKRejectLeavesBookUntouched(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "5"))

	o := limit("B1", BUY, "100", "10")
	o.TimeInForce = FOK
	res, _ := b.submit(o)

	if len(res.Fills) != 0 || !res.Remaining.Equal(d("10")) {
		t.Fatalf("FOK must not partially fill, got %+v", res)
	}

	// resting sell must still carry its full quantity
	_, qty, ok := b.bestPrice(SELL)
	if !ok || !qty.Equal(d("5")) {
		t.Errorf("resting order mutated by rejected FOK: qty=%s", qty)
	}
}

func TestIOCRemainderDropped(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "100", "5"))

	o := limit("B1", BUY, "100", "10")
	o.TimeInForce = IOC
	res, _ := b.submit(o)

	if len(res.Fills) != 1 || !res.Fills[0].Qty.Equal(d("5")) {
		t.Fatalf("expected fill of 5, got %+v", res.Fills)
	}
	if res.Rested {
		t.Errorf("IOC remainder must not rest")
	}
	if _, _, ok := b.bestPrice(BUY); ok {
		t.Errorf("bid side must stay empty")
	}
}

func TestStopOrderParksUntilTriggered(t *testing.T) {
	b := newBook("TST")

	var fired []*SubmitResult
	b.onStopTriggered = func(o *Order, res *SubmitResult) {
		fired = append(fired, res)
	}

	stop := &Order{ID: "ST1", Symbol: "TST", Side: SELL, StopPrice: d("95"), Qty: d("10"), Type: STOP}
	res, _ := b.submit(stop)
	if !res.Parked {
		t.Fatalf("expected stop order to park, got %+v", res)
	}

	// trade at 94 through the stop price triggers it against the resting bid
	b.submit(limit("B1", BUY, "94", "20"))
	b.submit(limit("S1", SELL, "94", "5"))

	if len(fired) != 1 {
		t.Fatalf("expected stop to fire once, got %d", len(fired))
	}
	if len(fired[0].Fills) != 1 || !fired[0].Fills[0].Qty.Equal(d("10")) {
		t.Errorf("expected triggered stop to fill 10, got %+v", fired[0])
	}
}

func TestWorkedScenario(t *testing.T) {
	// empty book; limit BUY 100@50 rests; limit SELL 60@50 fills 60;
	// market SELL 50 fills the remaining 40 and drops 10.
	b := newBook("X")

	res, _ := b.submit(limit("B1", BUY, "50.00", "100"))
	if !res.Rested || len(res.Fills) != 0 {
		t.Fatalf("expected buy to rest, got %+v", res)
	}

	res, _ = b.submit(limit("S1", SELL, "50.00", "60"))
	if len(res.Fills) != 1 || !res.Fills[0].Qty.Equal(d("60")) || !res.Fills[0].Price.Equal(d("50.00")) {
		t.Fatalf("expected one fill 60@50.00, got %+v", res.Fills)
	}

	res, _ = b.submit(market("M1", SELL, "50"))
	if len(res.Fills) != 1 || !res.Fills[0].Qty.Equal(d("40")) {
		t.Fatalf("expected fill of 40, got %+v", res.Fills)
	}
	if !res.Remaining.Equal(d("10")) || res.Rested {
		t.Errorf("expected unfilled 10 dropped, got %+v", res)
	}
	if _, _, ok := b.bestPrice(BUY); ok {
		t.Errorf("bid side should be exhausted")
	}
}

func TestManagerRoutesPerSymbol(t *testing.T) {
	m := NewManager()

	m.Submit(&Order{ID: "A1", Symbol: "AAA", Side: SELL, Price: d("10"), Qty: d("5"), Type: LIMIT, TimeInForce: GTC})
	res, _ := m.Submit(&Order{ID: "B1", Symbol: "BBB", Side: BUY, Price: d("10"), Qty: d("5"), Type: LIMIT, TimeInForce: GTC})

	if len(res.Fills) != 0 {
		t.Fatalf("orders on different symbols must not match")
	}

	snapA := m.Snapshot("AAA")
	if !snapA.HasAsk || snapA.HasBid {
		t.Errorf("unexpected AAA snapshot: %+v", snapA)
	}
}

func TestPriceKeyNormalizesEqualPrices(t *testing.T) {
	b := newBook("TST")

	b.submit(limit("S1", SELL, "50.00", "5"))
	b.submit(limit("S2", SELL, "50", "5"))

	res, _ := b.submit(limit("B1", BUY, "50.0", "10"))
	if len(res.Fills) != 2 {
		t.Fatalf("equal prices with different scale must share a level, got %d fills", len(res.Fills))
	}
}
