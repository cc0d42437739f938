package refprice

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisFeed reads reference prices and market volume published by an
// external market-data collaborator into redis.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) LastPrice(symbol string) (decimal.Decimal, bool) {
	val, err := f.client.Get(context.Background(), priceKey(symbol)).Result()
	if err != nil {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

func (f *RedisFeed) Volume(symbol string) decimal.Decimal {
	val, err := f.client.Get(context.Background(), volumeKey(symbol)).Result()
	if err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func priceKey(symbol string) string  { return fmt.Sprintf("refprice:%s", symbol) }
func volumeKey(symbol string) string { return fmt.Sprintf("refvolume:%s", symbol) }
