// Package pubsub relays presence events between service instances over redis.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"status-service/internal/dto"
)

// Channel returns the redis channel carrying a workspace's presence events
func Channel(workspaceID uuid.UUID) string {
	return fmt.Sprintf("presence:workspace:%s", workspaceID.String())
}

// Subscription delivers events for one workspace until closed
type Subscription interface {
	Events() <-chan dto.PresenceEvent
	Close() error
}

// RedisBroker publishes and subscribes to presence events
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroker creates a broker on top of an existing client
func NewRedisBroker(client *redis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

// Publish sends event to its workspace channel
func (b *RedisBroker) Publish(ctx context.Context, event dto.PresenceEvent) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}
	return b.client.Publish(ctx, Channel(event.WorkspaceID), payload).Err()
}

// Subscribe listens on the workspace channel. The subscription is confirmed
// before Subscribe returns so no event published afterwards is missed.
func (b *RedisBroker) Subscribe(ctx context.Context, workspaceID uuid.UUID) (Subscription, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	ps := b.client.Subscribe(ctx, Channel(workspaceID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &redisSubscription{
		pubsub: ps,
		events: make(chan dto.PresenceEvent, 64),
		done:   make(chan struct{}),
		logger: b.logger,
	}
	go sub.run()
	return sub, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	events    chan dto.PresenceEvent
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func (s *redisSubscription) Events() <-chan dto.PresenceEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// run decodes messages until the pubsub channel is closed
func (s *redisSubscription) run() {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var event dto.PresenceEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warn("Dropping malformed presence event",
				zap.String("channel", msg.Channel),
				zap.Error(err),
			)
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}
