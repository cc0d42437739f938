// Package worker drains the engine's event topic into the execution
// store. The engine never blocks on persistence; this consumer is the
// only writer of fills and order events.
package worker

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/papertrade/engine/pkg/eventsink"
	"github.com/papertrade/engine/pkg/kafka"
	"github.com/papertrade/engine/pkg/logging"
	"github.com/papertrade/engine/pkg/repo"
)

type Worker struct {
	fills  repo.IFill
	events repo.IOrderEvent
	log    *logging.Logger
}

func NewWorker(r repo.IRepo, log *logging.Logger) *Worker {
	if log == nil {
		log = logging.NewNop()
	}
	return &Worker{
		fills:  r.Fill(),
		events: r.OrderEvent(),
		log:    log,
	}
}

// Run consumes until the context ends. A failed batch is retried by the
// consumer group; fill inserts are idempotent so replays are safe.
func (w *Worker) Run(ctx context.Context, cg *kafka.ConsumerGroup) error {
	return cg.Run(ctx, w.handleBatch)
}

func (w *Worker) handleBatch(ctx context.Context, msgs []kafka.Message) error {
	var fills []*repo.FillRecord
	var events []*repo.OrderEventRecord

	for _, msg := range msgs {
		var ev eventsink.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			// Malformed payloads never become valid; drop, do not retry.
			w.log.Warn(ctx, "skip malformed event",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}

		switch ev.Type {
		case eventsink.EventFill:
			if ev.Fill == nil {
				continue
			}
			fills = append(fills, fillRecord(&ev))
		case eventsink.EventStatus:
			events = append(events, eventRecord(&ev))
		}
	}

	if len(fills) > 0 {
		if _, err := w.fills.BulkCreate(ctx, fills); err != nil {
			return err
		}
	}
	if len(events) > 0 {
		if _, err := w.events.BulkCreate(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

func fillRecord(ev *eventsink.Event) *repo.FillRecord {
	f := ev.Fill
	return &repo.FillRecord{
		ExecID:         f.ExecID,
		OrderID:        f.OrderID,
		CounterpartyID: f.CounterpartyID,
		ParentID:       f.ParentID,
		Symbol:         f.Symbol,
		Side:           string(f.Side),
		Quantity:       f.Quantity,
		Price:          f.Price,
		Commission:     f.Commission,
		Timestamp:      f.Timestamp,
	}
}

func eventRecord(ev *eventsink.Event) *repo.OrderEventRecord {
	o := &ev.Order
	return &repo.OrderEventRecord{
		OrderID:        o.OrderID,
		ParentID:       o.ParentID,
		Symbol:         o.Symbol,
		Owner:          o.Owner,
		Side:           string(o.Side),
		Type:           string(o.Type),
		Status:         string(o.Status),
		Quantity:       o.Quantity,
		FilledQuantity: o.FilledQuantity,
		AvgFillPrice:   o.AvgFillPrice,
		RejectReasons:  strings.Join(o.RejectReasons, "; "),
		EventTime:      ev.Timestamp,
	}
}
