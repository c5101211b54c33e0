package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// PricingPubSub fans out a notification whenever an event's pricing or
// availability changes (capture, refund, modification, admin edits), so
// other instances can drop their caches.
type PricingPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewPricingPubSub(rdb *redis.Client) *PricingPubSub {
	return &PricingPubSub{
		rdb:     rdb,
		channel: ChannelPricingChanged(),
	}
}

type pricingChangedMsg struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *PricingPubSub) PublishPricingChanged(ctx context.Context, eventID int64) error {
	msg := pricingChangedMsg{
		Type:    "pricing_changed",
		EventID: eventID,
		TsUnix:  time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *PricingPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, eventID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev pricingChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.EventID != 0 {
				handler(ctx, ev.EventID)
			}
		}
	}
}
