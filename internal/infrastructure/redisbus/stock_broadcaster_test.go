package redisbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/redisbus"
)

// fakePublisher registra las publicaciones en lugar de hablar con Redis.
type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestStockBroadcaster_PublicaEnElCanal(t *testing.T) {
	pub := &fakePublisher{}
	b := redisbus.NewStockBroadcaster(pub, "inventory:stock-changed")

	err := b.StockChanged(context.Background(), inventory.StockChangedEvent{
		InventoryLineID: "line-1", ProductID: "P1", WarehouseID: "W1", Quantity: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "inventory:stock-changed", pub.channel)

	var evt inventory.StockChangedEvent
	require.NoError(t, json.Unmarshal(pub.payload, &evt))
	assert.Equal(t, int64(42), evt.Quantity)
	assert.Equal(t, "line-1", evt.InventoryLineID)
}

func TestStockBroadcaster_PropagaError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	b := redisbus.NewStockBroadcaster(pub, "c")
	err := b.StockChanged(context.Background(), inventory.StockChangedEvent{InventoryLineID: "x"})
	assert.Error(t, err)
}
