package config

import (
	"os"

	postgres_wrapper "github.com/papertrade/engine/pkg/infra/postgres"
	redis_wrapper "github.com/papertrade/engine/pkg/infra/redis"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	// FeeRate is the default commission rate, parsed as a decimal at
	// wiring time.
	FeeRate string `yaml:"fee_rate"`
	// CollarPct is the engine-wide price collar for owners without one
	// of their own. Empty disables it.
	CollarPct      string             `yaml:"collar_pct"`
	TickIntervalMS int64              `yaml:"tick_interval_ms"`
	MarketMaker    *MarketMakerConfig `yaml:"market_maker"`
}

// MarketMakerConfig enables the built-in quote refresher when present.
type MarketMakerConfig struct {
	Symbol     string `yaml:"symbol"`
	Owner      string `yaml:"owner"`
	Quantity   string `yaml:"quantity"`
	SpreadPct  string `yaml:"spread_pct"`
	IntervalMS int64  `yaml:"interval_ms"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventTopic  string   `yaml:"event_topic"`
	GroupID     string   `yaml:"group_id"`
	WorkerCount int      `yaml:"worker_count"`
	MaxRetries  int      `yaml:"max_retries"`
}

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	Engine      *EngineConfig                    `yaml:"engine"`
	EngineDB    *postgres_wrapper.PostgresConfig `yaml:"engine_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka       *KafkaConfig                     `yaml:"kafka"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
