package hub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"lms_backend/pkg/logger"
)

const broadcastChannel = "chat:events"

// RedisBridge fans frames out across hub instances through a redis pub/sub
// channel. Every instance subscribes, so a frame published by one node is
// delivered by all nodes to their local room members.
type RedisBridge struct {
	rdb *redis.Client
	hub *Hub
	log logger.Logger
}

func NewRedisBridge(rdb *redis.Client, h *Hub, log logger.Logger) *RedisBridge {
	b := &RedisBridge{rdb: rdb, hub: h, log: log}
	h.SetPublisher(b)
	return b
}

func (b *RedisBridge) Publish(ctx context.Context, payload []byte) error {
	return b.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// Run consumes the broadcast channel and feeds frames into the local hub
// loop until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, broadcastChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var f frame
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				b.log.Error("failed to decode broadcast frame", "error", err)
				continue
			}
			b.hub.inject(f)
		case <-ctx.Done():
			return
		}
	}
}
