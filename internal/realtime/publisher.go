// Package realtime fans domain changes out to other terminals over
// Redis pub/sub. The engine only publishes; subscribing and delivering
// to connected clients is the UI layer's concern.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sari-pos/sari-pos/internal/sales"
	"github.com/sari-pos/sari-pos/internal/shift"
)

// Channel names shared with the terminal clients.
const (
	ChannelSales     = "sales_updates"
	ChannelShifts    = "shifts_updates"
	ChannelInventory = "inventory_updates"
	ChannelLowStock  = "low_stock_alert"
)

// Envelope is the wire shape of every published message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	At   int64  `json:"at"`
}

// Publisher writes domain events to Redis channels.
type Publisher struct {
	client *redis.Client
}

// NewPublisher constructs a publisher.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) publish(ctx context.Context, channel, msgType string, data any) error {
	if p == nil || p.client == nil {
		return nil
	}
	raw, err := json.Marshal(Envelope{Type: msgType, Data: data, At: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("realtime: marshal %s: %w", msgType, err)
	}
	if err := p.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("realtime: publish %s: %w", channel, err)
	}
	return nil
}

// PublishSaleRecorded announces a persisted sale.
func (p *Publisher) PublishSaleRecorded(ctx context.Context, sale sales.Sale) error {
	return p.publish(ctx, ChannelSales, "sales_update", sale)
}

// PublishShiftUpdate announces a shift open, counter change or close.
func (p *Publisher) PublishShiftUpdate(ctx context.Context, sh shift.Shift) error {
	return p.publish(ctx, ChannelShifts, "shift_update", sh)
}

// PublishLowStockAlert announces a product that dropped to its minimum
// level.
func (p *Publisher) PublishLowStockAlert(ctx context.Context, productID int64, name string, stock float64) error {
	return p.publish(ctx, ChannelLowStock, "low_stock_alert", map[string]any{
		"product_id":     productID,
		"name":           name,
		"stock_quantity": stock,
	})
}

// PublishInventoryUpdate announces a stock level change.
func (p *Publisher) PublishInventoryUpdate(ctx context.Context, productID int64, stock float64) error {
	return p.publish(ctx, ChannelInventory, "inventory_update", map[string]any{
		"product_id":     productID,
		"stock_quantity": stock,
	})
}
