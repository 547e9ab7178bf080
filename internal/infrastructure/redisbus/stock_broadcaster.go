// Package redisbus difunde cambios de stock por Redis Pub/Sub.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.StockBroadcaster = (*StockBroadcaster)(nil)

// Publisher subconjunto de *redis.Client que se usa aquí.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// StockBroadcaster publica un StockChangedEvent en JSON por cada línea tocada.
type StockBroadcaster struct {
	client  Publisher
	channel string
}

// NewStockBroadcaster construye el difusor sobre un cliente Redis.
func NewStockBroadcaster(client Publisher, channel string) *StockBroadcaster {
	return &StockBroadcaster{client: client, channel: channel}
}

func (b *StockBroadcaster) StockChanged(ctx context.Context, evt inventory.StockChangedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal stock event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}
