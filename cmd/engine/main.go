package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/papertrade/engine/config"
	"github.com/papertrade/engine/pkg/algo"
	"github.com/papertrade/engine/pkg/engine"
	"github.com/papertrade/engine/pkg/eventsink"
	redis_wrapper "github.com/papertrade/engine/pkg/infra/redis"
	"github.com/papertrade/engine/pkg/kafka"
	"github.com/papertrade/engine/pkg/logging"
	"github.com/papertrade/engine/pkg/position"
	"github.com/papertrade/engine/pkg/refprice"
	"github.com/papertrade/engine/pkg/riskgate"
)

func main() {
	go func() {
		http.ListenAndServe("localhost:6060", nil)
	}()

	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	log := logging.NewLogger(logging.INFO)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	engineCfg := engine.Config{}
	tickInterval := time.Second
	var gate *riskgate.Gate
	if cfg.Engine != nil {
		if cfg.Engine.FeeRate != "" {
			engineCfg.FeeRate, err = decimal.NewFromString(cfg.Engine.FeeRate)
			if err != nil {
				panic(fmt.Errorf("parse fee_rate: %w", err))
			}
		}
		if cfg.Engine.CollarPct != "" {
			collarPct, err := decimal.NewFromString(cfg.Engine.CollarPct)
			if err != nil {
				panic(fmt.Errorf("parse collar_pct: %w", err))
			}
			gate = riskgate.NewGate(
				&riskgate.PositionLimitRule{},
				&riskgate.OrderSizeRule{},
				&riskgate.PriceCollarRule{DefaultPct: collarPct},
				&riskgate.MarketAccessRule{},
			)
		}
		if cfg.Engine.TickIntervalMS > 0 {
			tickInterval = time.Duration(cfg.Engine.TickIntervalMS) * time.Millisecond
		}
	}

	var feed refprice.Feed
	if cfg.Redis != nil {
		client, err := redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			panic(err)
		}
		feed = refprice.NewRedisFeed(client)
	}

	var sink eventsink.Sink
	if cfg.Kafka != nil {
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		sink = eventsink.NewKafkaSink(producer, cfg.Kafka.EventTopic)
	}

	positions := position.NewMemoryStore()
	eng := engine.NewEngine(engineCfg, positions, feed, nil, gate, sink, log)
	scheduler := algo.NewScheduler(eng, eng.ExecState(), algo.RealClock{}, tickInterval, log)
	go scheduler.Run(ctx)

	if cfg.Engine != nil && cfg.Engine.MarketMaker != nil {
		mm, err := buildMarketMaker(eng, feed, cfg.Engine.MarketMaker, positions)
		if err != nil {
			panic(err)
		}
		go mm.Run(ctx)
	}

	fmt.Println("Engine started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	cancel()

	fmt.Println("Exited cleanly.")
}

// buildMarketMaker parses the quote refresher config and registers the
// maker's trading limits so its quotes pass the gate.
func buildMarketMaker(eng *engine.Engine, feed refprice.Feed, cfg *config.MarketMakerConfig, positions *position.MemoryStore) (*engine.MarketMaker, error) {
	qty, err := decimal.NewFromString(cfg.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse market_maker.quantity: %w", err)
	}
	spread, err := decimal.NewFromString(cfg.SpreadPct)
	if err != nil {
		return nil, fmt.Errorf("parse market_maker.spread_pct: %w", err)
	}
	positions.SetLimits(cfg.Owner, &position.OwnerLimits{Tradable: true})
	return engine.NewMarketMaker(eng, feed, engine.MarketMakerConfig{
		Symbol:    cfg.Symbol,
		Owner:     cfg.Owner,
		Quantity:  qty,
		SpreadPct: spread,
		Interval:  time.Duration(cfg.IntervalMS) * time.Millisecond,
	}), nil
}
