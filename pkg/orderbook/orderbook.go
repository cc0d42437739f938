package orderbook

import (
	"container/heap"
	"sync"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// level is one price level: a price and its FIFO queue of resting orders.
type level struct {
	price decimal.Decimal
	queue *deque.Deque[*Order]
}

type book struct {
	symbol string

	bidLevels map[string]*level
	askLevels map[string]*level

	bidHeap *PriceHeap
	askHeap *PriceHeap

	resting map[string]*Order // order id -> resting order
	stops   map[string]*Order // order id -> parked stop order

	lastTrade decimal.Decimal
	hasLast   bool
	volume    decimal.Decimal

	// fired when a parked stop order triggers and trades on its own,
	// outside any submit call for that order
	onStopTriggered func(o *Order, res *SubmitResult)

	mu sync.Mutex
}

func newBook(symbol string) *book {
	bidHeap := NewPriceHeap(func(i, j decimal.Decimal) bool { return i.GreaterThan(j) }) // max-heap
	askHeap := NewPriceHeap(func(i, j decimal.Decimal) bool { return i.LessThan(j) })    // min-heap

	return &book{
		symbol:    symbol,
		bidLevels: make(map[string]*level),
		askLevels: make(map[string]*level),
		bidHeap:   bidHeap,
		askHeap:   askHeap,
		resting:   make(map[string]*Order),
		stops:     make(map[string]*Order),
	}
}

func (b *book) submit(o *Order) (*SubmitResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o == nil || o.ID == "" || !o.Qty.IsPositive() {
		return nil, ErrInvalidOrder
	}
	if _, ok := b.resting[o.ID]; ok {
		return nil, ErrDuplicateOrderID
	}
	if _, ok := b.stops[o.ID]; ok {
		return nil, ErrDuplicateOrderID
	}

	if o.Type == STOP || o.Type == STOPLIMIT {
		if !b.stopTriggered(o) {
			b.stops[o.ID] = o
			return &SubmitResult{Remaining: o.Qty, Parked: true}, nil
		}
		b.arm(o)
	}

	res := b.execute(o)
	b.fireStops()
	return res, nil
}

// execute runs the match walk for a market or limit order and rests any
// remainder the time-in-force allows to rest. Caller holds b.mu.
func (b *book) execute(o *Order) *SubmitResult {
	res := &SubmitResult{}

	if o.Type == LIMIT && o.TimeInForce == FOK && b.availableQty(o).LessThan(o.Qty) {
		// not fully fillable: reject without touching the book
		res.Remaining = o.Qty
		return res
	}

	res.Fills = b.matchOrder(o)
	res.Remaining = o.Qty

	if len(res.Fills) > 0 {
		last := res.Fills[len(res.Fills)-1]
		b.lastTrade = last.Price
		b.hasLast = true
		for _, f := range res.Fills {
			b.volume = b.volume.Add(f.Qty)
		}
	}

	// market orders and IOC remainders never rest
	if o.Type == LIMIT && o.Qty.IsPositive() && o.TimeInForce != IOC && o.TimeInForce != FOK {
		b.addToBook(o)
		res.Rested = true
	}

	return res
}

func (b *book) matchOrder(o *Order) []Fill {
	var fills []Fill

	counterLevels, counterHeap := b.askLevels, b.askHeap
	crosses := func(best decimal.Decimal) bool {
		return o.Type == MARKET || o.Price.GreaterThanOrEqual(best)
	}
	if o.Side == SELL {
		counterLevels, counterHeap = b.bidLevels, b.bidHeap
		crosses = func(best decimal.Decimal) bool {
			return o.Type == MARKET || o.Price.LessThanOrEqual(best)
		}
	}

	for {
		best, ok := counterHeap.Peek()
		if !ok || !crosses(best) {
			break
		}

		lv := counterLevels[priceKey(best)]
		if lv == nil || lv.queue.Len() == 0 {
			heap.Pop(counterHeap)
			delete(counterLevels, priceKey(best))
			continue
		}

		top := lv.queue.Front()
		if top.cancelled {
			// lazily discarded: cancel already removed it from the index
			lv.queue.PopFront()
			continue
		}

		matchQty := decimal.Min(o.Qty, top.Qty)
		o.Qty = o.Qty.Sub(matchQty)
		top.Qty = top.Qty.Sub(matchQty)

		fills = append(fills, Fill{
			OrderID:        o.ID,
			CounterOrderID: top.ID,
			Price:          best,
			Qty:            matchQty,
			Side:           o.Side,
		})

		if top.Qty.IsZero() {
			lv.queue.PopFront()
			delete(b.resting, top.ID)
		}

		if o.Qty.IsZero() {
			break
		}
	}

	return fills
}

// availableQty is the total resting quantity the order could cross, used
// for the FOK pre-check so a rejected FOK never mutates the book.
func (b *book) availableQty(o *Order) decimal.Decimal {
	counterLevels := b.askLevels
	crosses := func(p decimal.Decimal) bool { return o.Price.GreaterThanOrEqual(p) }
	if o.Side == SELL {
		counterLevels = b.bidLevels
		crosses = func(p decimal.Decimal) bool { return o.Price.LessThanOrEqual(p) }
	}

	total := decimal.Zero
	for _, lv := range counterLevels {
		if !crosses(lv.price) {
			continue
		}
		for i := 0; i < lv.queue.Len(); i++ {
			ord := lv.queue.At(i)
			if !ord.cancelled {
				total = total.Add(ord.Qty)
			}
		}
	}
	return total
}

func (b *book) addToBook(o *Order) {
	levels, h := b.bidLevels, b.bidHeap
	if o.Side == SELL {
		levels, h = b.askLevels, b.askHeap
	}

	key := priceKey(o.Price)
	lv := levels[key]
	if lv == nil {
		lv = &level{price: o.Price, queue: &deque.Deque[*Order]{}}
		levels[key] = lv
		heap.Push(h, o.Price)
	}
	lv.queue.PushBack(o)
	b.resting[o.ID] = o
}

// cancel removes a resting or parked order. Cancellation is lazy for
// resting orders: the order is flagged and dropped from the index, and
// the match walk discards it when it reaches the front of its level.
func (b *book) cancel(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.stops[orderID]; ok {
		delete(b.stops, orderID)
		return nil
	}
	o, ok := b.resting[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.cancelled = true
	delete(b.resting, orderID)
	return nil
}

func (b *book) stopTriggered(o *Order) bool {
	if !b.hasLast {
		return false
	}
	if o.Side == BUY {
		return b.lastTrade.GreaterThanOrEqual(o.StopPrice)
	}
	return b.lastTrade.LessThanOrEqual(o.StopPrice)
}

// arm converts a triggered stop order into its executable form.
func (b *book) arm(o *Order) {
	if o.Type == STOP {
		o.Type = MARKET
	} else {
		o.Type = LIMIT
	}
}

// fireStops executes parked stop orders whose trigger price has traded.
// Each triggered order may move the last trade and trigger further stops,
// so the scan repeats until it finds nothing to arm. Caller holds b.mu.
func (b *book) fireStops() {
	for {
		var triggered *Order
		for _, o := range b.stops {
			if b.stopTriggered(o) {
				triggered = o
				break
			}
		}
		if triggered == nil {
			return
		}

		delete(b.stops, triggered.ID)
		b.arm(triggered)
		res := b.execute(triggered)
		if b.onStopTriggered != nil {
			b.onStopTriggered(triggered, res)
		}
	}
}

// bestPrice returns the best live price on one side, discarding empty and
// fully-cancelled levels on the way.
func (b *book) bestPrice(side Side) (decimal.Decimal, decimal.Decimal, bool) {
	levels, h := b.bidLevels, b.bidHeap
	if side == SELL {
		levels, h = b.askLevels, b.askHeap
	}

	for {
		best, ok := h.Peek()
		if !ok {
			return decimal.Zero, decimal.Zero, false
		}
		lv := levels[priceKey(best)]
		if lv != nil {
			for lv.queue.Len() > 0 && lv.queue.Front().cancelled {
				lv.queue.PopFront()
			}
			if lv.queue.Len() > 0 {
				qty := decimal.Zero
				for i := 0; i < lv.queue.Len(); i++ {
					ord := lv.queue.At(i)
					if !ord.cancelled {
						qty = qty.Add(ord.Qty)
					}
				}
				if qty.IsPositive() {
					return best, qty, true
				}
			}
		}
		heap.Pop(h)
		delete(levels, priceKey(best))
	}
}
