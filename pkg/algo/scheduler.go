// Package algo decomposes parent orders into timed child slices and
// routes them through the same admission path as direct orders.
package algo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/papertrade/engine/pkg/engine"
	"github.com/papertrade/engine/pkg/engine/model"
	"github.com/papertrade/engine/pkg/logging"
	"github.com/papertrade/engine/pkg/refprice"
)

var (
	ErrParentNotFound  = errors.New("parent order not found")
	ErrParentNotActive = errors.New("parent order is terminal")
)

type ParentStatus string

const (
	ParentScheduled ParentStatus = "Scheduled"
	ParentExecuting ParentStatus = "Executing"
	ParentPaused    ParentStatus = "Paused"
	ParentCompleted ParentStatus = "Completed"
	ParentCancelled ParentStatus = "Cancelled"
)

// OrderGateway is the engine surface the scheduler drives. Child
// submissions go through the full risk/match path; the scheduler never
// touches a book directly.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, req *model.SubmitOrder) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrder(orderID string) (*model.Order, error)
	TradedVolume(symbol string) decimal.Decimal
}

// ProgressReader is the single source of truth for parent fill progress.
// The scheduler never recomputes it from child snapshots.
type ProgressReader interface {
	Progress(parentID string) (engine.ExecProgress, bool)
}

type parent struct {
	id    string
	spec  ParentSpec
	sizer sizer

	mu          sync.Mutex
	status      ParentStatus
	children    []string
	activeChild string // resting iceberg slice, if any
	lastVolume  decimal.Decimal
	skipped     int
}

// ParentView is a point-in-time copy handed to callers.
type ParentView struct {
	ID           string
	Spec         ParentSpec
	Status       ParentStatus
	Children     []string
	SkippedTicks int
}

// Scheduler owns active parents and emits child slices on a fixed
// cadence. It holds no instrument lock across tick boundaries; every
// child goes through the gateway's own serialization point.
type Scheduler struct {
	gateway  OrderGateway
	progress ProgressReader
	clock    Clock
	interval time.Duration
	log      *logging.Logger

	// volumeFeed, when set, supplies POV interval volume instead of the
	// engine's own tape.
	volumeFeed refprice.Feed

	mu      sync.Mutex
	parents map[string]*parent
}

func NewScheduler(gateway OrderGateway, progress ProgressReader, clock Clock, interval time.Duration, log *logging.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{
		gateway:  gateway,
		progress: progress,
		clock:    clock,
		interval: interval,
		log:      log,
		parents:  make(map[string]*parent),
	}
}

// SetVolumeFeed switches POV volume observation to an external market
// data feed. Call before registering parents.
func (s *Scheduler) SetVolumeFeed(feed refprice.Feed) {
	s.volumeFeed = feed
}

func (s *Scheduler) observedVolume(symbol string) decimal.Decimal {
	if s.volumeFeed != nil {
		return s.volumeFeed.Volume(symbol)
	}
	return s.gateway.TradedVolume(symbol)
}

// Register validates the parent spec and admits it for execution.
func (s *Scheduler) Register(spec ParentSpec) (string, error) {
	if spec.Symbol == "" || spec.Owner == "" {
		return "", fmt.Errorf("parent requires symbol and owner")
	}
	if spec.Side != model.OrderSideBuy && spec.Side != model.OrderSideSell {
		return "", fmt.Errorf("unknown side %q", spec.Side)
	}
	if !spec.Quantity.IsPositive() {
		return "", fmt.Errorf("parent quantity must be positive")
	}
	if !spec.End.After(spec.Start) {
		return "", fmt.Errorf("time window end must be after start")
	}
	sz, err := newSizer(&spec)
	if err != nil {
		return "", err
	}

	p := &parent{
		id:     uuid.New().String(),
		spec:   spec,
		sizer:  sz,
		status: ParentScheduled,
		// POV interval volume is measured from registration.
		lastVolume: s.observedVolume(spec.Symbol),
	}

	s.mu.Lock()
	s.parents[p.id] = p
	s.mu.Unlock()
	return p.id, nil
}

// Run drives ticks until the context ends.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.interval):
			s.Tick(ctx, s.clock.Now())
		}
	}
}

// Tick advances every active parent once. Exported so tests and manual
// drivers can step deterministically.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	active := make([]*parent, 0, len(s.parents))
	for _, p := range s.parents {
		active = append(active, p)
	}
	s.mu.Unlock()

	for _, p := range active {
		s.tickParent(ctx, p, now)
	}
}

func (s *Scheduler) tickParent(ctx context.Context, p *parent, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status {
	case ParentCompleted, ParentCancelled, ParentPaused:
		return
	}
	if now.Before(p.spec.Start) {
		return
	}
	if p.status == ParentScheduled {
		p.status = ParentExecuting
	}

	prog, _ := s.progress.Progress(p.id)
	remaining := p.spec.Quantity.Sub(prog.FilledQty)
	if !remaining.IsPositive() {
		s.finish(ctx, p)
		return
	}

	expired := !now.Before(p.spec.End)

	vol := s.observedVolume(p.spec.Symbol)
	intervalVol := vol.Sub(p.lastVolume)
	p.lastVolume = vol

	childResting := false
	if p.activeChild != "" {
		ord, err := s.gateway.GetOrder(p.activeChild)
		switch {
		case err != nil || ord.IsTerminal():
			p.activeChild = ""
		case shouldRefresh(p, ord):
			// Pull the partially consumed slice; a fresh one goes out
			// below at full visible size.
			if _, err := s.gateway.CancelOrder(ctx, p.activeChild); err == nil {
				p.activeChild = ""
			} else {
				childResting = true
			}
		default:
			childResting = true
		}
	}

	qty := p.sizer.size(&p.spec, tickInput{
		now:            now,
		filled:         prog.FilledQty,
		remaining:      remaining,
		intervalVolume: intervalVol,
		childResting:   childResting,
	})

	// Time-line strategies owe their full remainder by the deadline; the
	// reactive ones just stop when the window closes.
	emit := qty.IsPositive()
	if expired && (p.spec.Kind == Iceberg || p.spec.Kind == POV) {
		emit = false
	}

	if emit {
		s.emitChild(ctx, p, qty)
	}

	prog, _ = s.progress.Progress(p.id)
	if prog.FilledQty.GreaterThanOrEqual(p.spec.Quantity) || expired {
		s.finish(ctx, p)
	}
}

// emitChild submits one slice. A risk rejection is a skipped tick, not a
// retry loop: sizing reattempts on the next tick within the window.
func (s *Scheduler) emitChild(ctx context.Context, p *parent, qty decimal.Decimal) {
	req := &model.SubmitOrder{
		Symbol:   p.spec.Symbol,
		Owner:    p.spec.Owner,
		Side:     p.spec.Side,
		Type:     model.OrderTypeMarket,
		Quantity: qty,
		ParentID: p.id,
	}
	if p.spec.Kind == Iceberg {
		req.Type = model.OrderTypeLimit
		req.Price = p.spec.LimitPrice
	}

	ord, err := s.gateway.SubmitOrder(ctx, req)
	if err != nil {
		p.skipped++
		s.log.Warn(ctx, "child slice submission failed",
			zap.String("parent_id", p.id),
			zap.Error(err))
		return
	}

	p.children = append(p.children, ord.OrderID)
	if ord.Status == model.OrderStatusRejected {
		p.skipped++
		s.log.Warn(ctx, "child slice rejected",
			zap.String("parent_id", p.id),
			zap.String("order_id", ord.OrderID),
			zap.Strings("reasons", ord.RejectReasons))
		return
	}
	if p.spec.Kind == Iceberg && !ord.IsTerminal() {
		p.activeChild = ord.OrderID
	}
}

// finish marks the parent completed and cancels whatever children still
// rest. Completed fills are kept as-is.
func (s *Scheduler) finish(ctx context.Context, p *parent) {
	s.cancelChildren(ctx, p)
	p.status = ParentCompleted
}

func (s *Scheduler) cancelChildren(ctx context.Context, p *parent) {
	for _, id := range p.children {
		ord, err := s.gateway.GetOrder(id)
		if err != nil || ord.IsTerminal() {
			continue
		}
		if _, err := s.gateway.CancelOrder(ctx, id); err != nil {
			s.log.Warn(ctx, "cancel child failed",
				zap.String("parent_id", p.id),
				zap.String("order_id", id),
				zap.Error(err))
		}
	}
	p.activeChild = ""
}

// Cancel halts a parent and pulls its resting children. Cancelling a
// terminal parent is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, parentID string) error {
	p, ok := s.lookup(parentID)
	if !ok {
		return ErrParentNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.status {
	case ParentCompleted, ParentCancelled:
		return nil
	}
	s.cancelChildren(ctx, p)
	p.status = ParentCancelled
	return nil
}

// Pause suspends emission and pulls resting children; completed fills are
// kept. Resume picks the target line back up.
func (s *Scheduler) Pause(ctx context.Context, parentID string) error {
	p, ok := s.lookup(parentID)
	if !ok {
		return ErrParentNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.status {
	case ParentCompleted, ParentCancelled:
		return ErrParentNotActive
	}
	s.cancelChildren(ctx, p)
	p.status = ParentPaused
	return nil
}

func (s *Scheduler) Resume(parentID string) error {
	p, ok := s.lookup(parentID)
	if !ok {
		return ErrParentNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.status {
	case ParentCompleted, ParentCancelled:
		return ErrParentNotActive
	case ParentPaused:
		// Volume traded while paused owes no participation; rebaseline
		// so the first tick back sizes only against fresh prints.
		p.lastVolume = s.observedVolume(p.spec.Symbol)
		p.status = ParentExecuting
	}
	return nil
}

func (s *Scheduler) Parent(parentID string) (ParentView, bool) {
	p, ok := s.lookup(parentID)
	if !ok {
		return ParentView{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	children := make([]string, len(p.children))
	copy(children, p.children)
	return ParentView{
		ID:           p.id,
		Spec:         p.spec,
		Status:       p.status,
		Children:     children,
		SkippedTicks: p.skipped,
	}, true
}

// shouldRefresh reports whether a resting iceberg slice has filled past
// the configured refresh ratio.
func shouldRefresh(p *parent, ord *model.Order) bool {
	r := p.spec.RefreshRatio
	if !r.IsPositive() || !ord.FilledQuantity.IsPositive() {
		return false
	}
	return ord.FilledQuantity.GreaterThanOrEqual(ord.Quantity.Mul(r))
}

func (s *Scheduler) lookup(parentID string) (*parent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parents[parentID]
	return p, ok
}
