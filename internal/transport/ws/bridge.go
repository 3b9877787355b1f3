package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "chronofeed:relay"

type bridgeEnvelope struct {
	Origin     string          `json:"origin"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Data       json.RawMessage `json:"data"`
}

// RedisBridge fans relayed events out to every instance over Redis pub/sub.
// Delivery is best effort; pub/sub does not replay missed events.
type RedisBridge struct {
	rdb    *redis.Client
	hub    *Hub
	origin string
}

func NewRedisBridge(rdb *redis.Client, hub *Hub) *RedisBridge {
	return &RedisBridge{
		rdb:    rdb,
		hub:    hub,
		origin: uuid.NewString(),
	}
}

func (b *RedisBridge) Publish(ctx context.Context, receiverID uuid.UUID, data []byte) error {
	payload, err := json.Marshal(bridgeEnvelope{
		Origin:     b.origin,
		ReceiverID: receiverID,
		Data:       data,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, relayChannel, payload).Err()
}

// Run delivers events published by other instances until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, relayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	slog.Info("ws bridge: subscribed", "channel", relayChannel, "origin", b.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle([]byte(msg.Payload))
		}
	}
}

func (b *RedisBridge) handle(payload []byte) {
	var env bridgeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("ws bridge: bad envelope", "error", err)
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.DeliverLocal(env.ReceiverID, env.Data)
}
