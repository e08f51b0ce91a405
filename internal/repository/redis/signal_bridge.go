package redis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/database"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/logger"
)

// SignalBridge shuttles signaling frames between processes over Redis
// Pub/Sub. The in-memory connection registry is process-local; the bridge is
// what lets a frame published by another signaling process reach sockets held
// here.
type SignalBridge struct {
	client *database.RedisClient
}

// NewSignalBridge creates a new SignalBridge
func NewSignalBridge(client *database.RedisClient) *SignalBridge {
	return &SignalBridge{client: client}
}

func userChannel(userID int64) string {
	return fmt.Sprintf("signal:user:%d", userID)
}

// Publish sends a frame to whatever process holds the user's sockets
func (b *SignalBridge) Publish(ctx context.Context, userID int64, frame []byte) error {
	if err := b.client.Client.Publish(ctx, userChannel(userID), frame).Err(); err != nil {
		return fmt.Errorf("failed to publish signal frame: %w", err)
	}
	return nil
}

// Subscribe listens on the user's channel until ctx is cancelled, invoking
// deliver for each frame received
func (b *SignalBridge) Subscribe(ctx context.Context, userID int64, deliver func(frame []byte)) {
	channel := userChannel(userID)

	pubsub := b.client.Client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("failed to subscribe to signal channel",
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			deliver([]byte(msg.Payload))
		}
	}
}
