// Package engine ties the pre-trade risk gate, the per-instrument order
// books, position keeping and execution tracking together behind one
// submission API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/papertrade/engine/pkg/engine/model"
	"github.com/papertrade/engine/pkg/eventsink"
	"github.com/papertrade/engine/pkg/logging"
	"github.com/papertrade/engine/pkg/orderbook"
	"github.com/papertrade/engine/pkg/position"
	"github.com/papertrade/engine/pkg/refprice"
	"github.com/papertrade/engine/pkg/riskgate"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
)

type Config struct {
	// FeeRate is the default commission rate applied to fill notional.
	// A submission may override it per order.
	FeeRate decimal.Decimal
}

// Engine validates, matches and tracks orders. All state transitions for
// one instrument happen under that instrument's lock, so a risk check
// and the match it admits are atomic.
type Engine struct {
	cfg       Config
	books     *orderbook.Manager
	gate      *riskgate.Gate
	positions position.Store
	refFeed   refprice.Feed
	calendar  riskgate.SessionCalendar
	execState *ExecState
	sink      eventsink.Sink
	log       *logging.Logger

	orders    sync.Map // order id -> *model.Order
	symLocks  sync.Map // symbol -> *sync.Mutex
	emitLocks sync.Map // symbol -> *sync.Mutex

	// events produced by stop orders triggering inside a book walk;
	// drained by the submission that caused the trigger.
	stopMu     sync.Mutex
	stopEvents map[string][]eventsink.Event
}

func NewEngine(cfg Config, positions position.Store, feed refprice.Feed, calendar riskgate.SessionCalendar, gate *riskgate.Gate, sink eventsink.Sink, log *logging.Logger) *Engine {
	if positions == nil {
		positions = position.NewMemoryStore()
	}
	if feed == nil {
		feed = refprice.NewMemoryFeed()
	}
	if calendar == nil {
		calendar = riskgate.AlwaysOpen{}
	}
	if gate == nil {
		gate = riskgate.NewGate()
	}
	if sink == nil {
		sink = eventsink.NewMemorySink()
	}
	if log == nil {
		log = logging.NewNop()
	}

	e := &Engine{
		cfg:        cfg,
		books:      orderbook.NewManager(),
		gate:       gate,
		positions:  positions,
		refFeed:    feed,
		calendar:   calendar,
		execState:  NewExecState(),
		sink:       sink,
		log:        log,
		stopEvents: make(map[string][]eventsink.Event),
	}
	e.books.RegisterStopCallback(e.onStopTriggered)
	return e
}

func (e *Engine) ExecState() *ExecState {
	return e.execState
}

// SubmitOrder runs the full admission path: validation, risk gate, match,
// fill application, event emission. The returned order is a snapshot;
// later fills do not mutate it. A risk rejection is not an error.
func (e *Engine) SubmitOrder(ctx context.Context, req *model.SubmitOrder) (*model.Order, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	ord := &model.Order{
		OrderID:      uuid.New().String(),
		Symbol:       req.Symbol,
		Owner:        req.Owner,
		Side:         req.Side,
		Type:         req.Type,
		TimeInForce:  req.TimeInForce,
		Price:        req.Price,
		StopPrice:    req.StopPrice,
		Quantity:     req.Quantity,
		ParentID:     req.ParentID,
		FeeRate:      req.FeeRate,
		TransactTime: req.TransactTime,
		Status:       model.OrderStatusPending,
	}
	if ord.TimeInForce == "" {
		ord.TimeInForce = model.OrderTimeInForceDAY
	}
	if ord.TransactTime.IsZero() {
		ord.TransactTime = time.Now()
	}

	lock := e.symbolLock(ord.Symbol)
	lock.Lock()

	snap := e.riskSnapshot(ord)
	if ok, reasons := e.gate.Validate(ord, snap); !ok {
		ord.Reject(reasons...)
		e.orders.Store(ord.OrderID, ord)
		out := *ord
		emitMu := e.emitLock(ord.Symbol)
		emitMu.Lock()
		lock.Unlock()

		e.log.Info(ctx, "order rejected by risk gate",
			zap.String("order_id", out.OrderID),
			zap.String("symbol", out.Symbol),
			zap.Strings("reasons", reasons))
		e.emit(ctx, statusEvent(&out))
		emitMu.Unlock()
		return &out, nil
	}

	e.orders.Store(ord.OrderID, ord)
	if ord.ParentID != "" {
		e.execState.Register(ord.ParentID)
	}

	res, err := e.books.Submit(bookOrder(ord))
	if err != nil {
		e.orders.Delete(ord.OrderID)
		lock.Unlock()
		return nil, err
	}

	events := e.applyResult(ord, res)
	events = append(events, e.drainStopEvents(ord.Symbol)...)
	out := *ord
	emitMu := e.emitLock(ord.Symbol)
	emitMu.Lock()
	lock.Unlock()

	for _, ev := range events {
		e.emit(ctx, ev)
	}
	emitMu.Unlock()
	return &out, nil
}

// CancelOrder is idempotent: cancelling a terminal order is a no-op.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	v, ok := e.orders.Load(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	ord := v.(*model.Order)

	lock := e.symbolLock(ord.Symbol)
	lock.Lock()

	if ord.IsTerminal() {
		out := *ord
		lock.Unlock()
		return &out, nil
	}

	// The book may have already consumed the order (fully matched in a
	// concurrent submission); the lifecycle record is authoritative.
	if err := e.books.Cancel(ord.Symbol, ord.OrderID); err != nil && !errors.Is(err, orderbook.ErrOrderNotFound) {
		lock.Unlock()
		return nil, err
	}
	ord.Status = model.OrderStatusCancelled
	out := *ord
	emitMu := e.emitLock(ord.Symbol)
	emitMu.Lock()
	lock.Unlock()

	e.log.Info(ctx, "order cancelled",
		zap.String("order_id", out.OrderID),
		zap.String("symbol", out.Symbol))
	e.emit(ctx, statusEvent(&out))
	emitMu.Unlock()
	return &out, nil
}

// GetOrder returns a snapshot of the order's current state.
func (e *Engine) GetOrder(orderID string) (*model.Order, error) {
	v, ok := e.orders.Load(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	ord := v.(*model.Order)

	lock := e.symbolLock(ord.Symbol)
	lock.Lock()
	out := *ord
	lock.Unlock()
	return &out, nil
}

func (e *Engine) OrderStatus(orderID string) (model.OrderStatus, error) {
	ord, err := e.GetOrder(orderID)
	if err != nil {
		return "", err
	}
	return ord.Status, nil
}

// TradedVolume is the cumulative matched quantity on one instrument.
func (e *Engine) TradedVolume(symbol string) decimal.Decimal {
	return e.books.Volume(symbol)
}

func (e *Engine) BookSnapshot(symbol string) orderbook.Snapshot {
	return e.books.Snapshot(symbol)
}

func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	if v, ok := e.symLocks.Load(symbol); ok {
		return v.(*sync.Mutex)
	}
	v, _ := e.symLocks.LoadOrStore(symbol, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// emitLock serializes publication per instrument. It is taken while the
// instrument lock is still held and released after the events are out,
// so a slow sink cannot reorder two submissions' events against their
// match order. Never take the instrument lock while holding it.
func (e *Engine) emitLock(symbol string) *sync.Mutex {
	if v, ok := e.emitLocks.Load(symbol); ok {
		return v.(*sync.Mutex)
	}
	v, _ := e.emitLocks.LoadOrStore(symbol, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// riskSnapshot captures the state the gate judges against. Reference
// price prefers the instrument's own last trade over the external feed.
func (e *Engine) riskSnapshot(o *model.Order) *riskgate.Snapshot {
	snap := &riskgate.Snapshot{
		Position:    e.positions.Position(o.Owner, o.Symbol),
		Sector:      e.positions.Sector(o.Symbol),
		SessionOpen: e.calendar.IsOpen(o.Symbol),
	}
	if snap.Sector != "" {
		snap.SectorPosition = e.positions.SectorPosition(o.Owner, snap.Sector)
	}
	if limits, ok := e.positions.Limits(o.Owner); ok {
		snap.Limits = limits
	}

	book := e.books.Snapshot(o.Symbol)
	if book.HasLastTrade {
		snap.RefPrice, snap.HasRefPrice = book.LastTrade, true
	} else if p, ok := e.refFeed.LastPrice(o.Symbol); ok {
		snap.RefPrice, snap.HasRefPrice = p, true
	}
	return snap
}

// applyResult folds the book's outcome into lifecycle records, positions
// and execution state, and returns the events to emit. Caller holds the
// instrument lock.
func (e *Engine) applyResult(ord *model.Order, res *orderbook.SubmitResult) []eventsink.Event {
	now := time.Now()
	var events []eventsink.Event
	counters := make(map[string]*model.Order)

	for _, f := range res.Fills {
		ord.ApplyFill(f.Qty, f.Price)
		events = append(events, fillEvent(ord, e.recordFill(ord, f.CounterOrderID, f.Qty, f.Price, now)))

		cv, ok := e.orders.Load(f.CounterOrderID)
		if !ok {
			continue
		}
		counter := cv.(*model.Order)
		counter.ApplyFill(f.Qty, f.Price)
		counters[counter.OrderID] = counter
		events = append(events, fillEvent(counter, e.recordFill(counter, ord.OrderID, f.Qty, f.Price, now)))
	}

	// Disposition of a remainder the book refused to keep.
	if !ord.IsTerminal() && !res.Rested && !res.Parked && ord.RemainingQuantity().IsPositive() {
		if ord.FilledQuantity.IsZero() {
			if ord.TimeInForce == model.OrderTimeInForceFOK {
				ord.Reject("insufficient quantity for fill-or-kill")
			} else {
				ord.Reject("no available liquidity")
			}
		} else {
			ord.Status = model.OrderStatusCancelled
		}
	}

	events = append(events, statusEvent(ord))
	for _, counter := range counters {
		events = append(events, statusEvent(counter))
	}
	return events
}

// recordFill builds the execution record for one side of a match and
// applies its position and parent-progress effects.
func (e *Engine) recordFill(o *model.Order, counterpartyID string, qty, price decimal.Decimal, ts time.Time) *model.Fill {
	rate := e.cfg.FeeRate
	if o.FeeRate.IsPositive() {
		rate = o.FeeRate
	}
	f := &model.Fill{
		ExecID:         uuid.New().String(),
		OrderID:        o.OrderID,
		CounterpartyID: counterpartyID,
		ParentID:       o.ParentID,
		Symbol:         o.Symbol,
		Side:           o.Side,
		Quantity:       qty,
		Price:          price,
		Commission:     rate.Mul(qty).Mul(price),
		Timestamp:      ts,
	}

	delta := qty
	if o.Side == model.OrderSideSell {
		delta = qty.Neg()
	}
	e.positions.Apply(o.Owner, o.Symbol, delta)
	e.execState.RecordFill(*f)
	return f
}

// onStopTriggered applies the execution of a stop order armed during
// another order's match walk. Runs under the triggering submission's
// instrument lock; its events are drained by that submission.
func (e *Engine) onStopTriggered(symbol string, o *orderbook.Order, res *orderbook.SubmitResult) {
	v, ok := e.orders.Load(o.ID)
	if !ok {
		return
	}
	ord := v.(*model.Order)
	events := e.applyResult(ord, res)

	e.stopMu.Lock()
	e.stopEvents[symbol] = append(e.stopEvents[symbol], events...)
	e.stopMu.Unlock()
}

func (e *Engine) drainStopEvents(symbol string) []eventsink.Event {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	events := e.stopEvents[symbol]
	delete(e.stopEvents, symbol)
	return events
}

func (e *Engine) emit(ctx context.Context, ev eventsink.Event) {
	if err := e.sink.Emit(ctx, ev); err != nil {
		e.log.Error(ctx, "emit event failed",
			zap.String("order_id", ev.Order.OrderID),
			zap.Error(err))
	}
}

func fillEvent(o *model.Order, f *model.Fill) eventsink.Event {
	return eventsink.Event{Type: eventsink.EventFill, Order: *o, Fill: f, Timestamp: f.Timestamp}
}

func statusEvent(o *model.Order) eventsink.Event {
	return eventsink.Event{Type: eventsink.EventStatus, Order: *o, Timestamp: time.Now()}
}

func validateSubmit(req *model.SubmitOrder) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidOrder)
	}
	if req.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidOrder)
	}
	if req.Owner == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidOrder)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	switch req.Side {
	case model.OrderSideBuy, model.OrderSideSell:
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, req.Side)
	}
	switch req.Type {
	case model.OrderTypeLimit, model.OrderTypeStopLimit:
		if !req.Price.IsPositive() {
			return fmt.Errorf("%w: %s order requires a positive price", ErrInvalidOrder, req.Type)
		}
	case model.OrderTypeMarket, model.OrderTypeStop:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOrder, req.Type)
	}
	switch req.Type {
	case model.OrderTypeStop, model.OrderTypeStopLimit:
		if !req.StopPrice.IsPositive() {
			return fmt.Errorf("%w: %s order requires a positive stop price", ErrInvalidOrder, req.Type)
		}
	}
	switch req.TimeInForce {
	case "", model.OrderTimeInForceDAY, model.OrderTimeInForceGTC,
		model.OrderTimeInForceIOC, model.OrderTimeInForceFOK:
	default:
		return fmt.Errorf("%w: unknown time in force %q", ErrInvalidOrder, req.TimeInForce)
	}
	return nil
}

func bookOrder(o *model.Order) *orderbook.Order {
	return &orderbook.Order{
		ID:          o.OrderID,
		Symbol:      o.Symbol,
		Side:        orderbook.Side(o.Side),
		Price:       o.Price,
		StopPrice:   o.StopPrice,
		Qty:         o.Quantity,
		Type:        orderbook.OrderType(o.Type),
		TimeInForce: orderbook.TimeInForce(o.TimeInForce),
	}
}
