package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"status-service/internal/dto"
)

func setupBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBroker(client, zap.NewNop()), mr
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	assert.Equal(t, "presence:workspace:123e4567-e89b-12d3-a456-426614174000", Channel(id))
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	broker, _ := setupBroker(t)
	ctx := context.Background()
	ws := uuid.New()

	sub, err := broker.Subscribe(ctx, ws)
	require.NoError(t, err)
	defer sub.Close()

	event := dto.PresenceEvent{
		Type:        dto.EventTypeUserStatus,
		WorkspaceID: ws,
		UserID:      uuid.New(),
		Status:      "online",
		LastSeen:    1234,
	}
	require.NoError(t, broker.Publish(ctx, event))

	select {
	case got := <-sub.Events():
		assert.Equal(t, event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestRedisBroker_OtherWorkspaceNotDelivered(t *testing.T) {
	broker, _ := setupBroker(t)
	ctx := context.Background()
	ws := uuid.New()

	sub, err := broker.Subscribe(ctx, ws)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, dto.PresenceEvent{Type: dto.EventTypeUserStatus, WorkspaceID: uuid.New()}))

	select {
	case got := <-sub.Events():
		t.Fatalf("unexpected event %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBroker_MalformedPayloadSkipped(t *testing.T) {
	broker, mr := setupBroker(t)
	ctx := context.Background()
	ws := uuid.New()

	sub, err := broker.Subscribe(ctx, ws)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(Channel(ws), "{not json")
	require.NoError(t, broker.Publish(ctx, dto.PresenceEvent{Type: dto.EventTypeUserStatus, WorkspaceID: ws, Status: "away"}))

	select {
	case got := <-sub.Events():
		assert.Equal(t, "away", got.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("valid event was not delivered")
	}
}

func TestRedisBroker_CloseEndsEvents(t *testing.T) {
	broker, _ := setupBroker(t)

	sub, err := broker.Subscribe(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed")
	}
}

func TestRedisBroker_NilClient(t *testing.T) {
	var broker *RedisBroker
	assert.Error(t, broker.Publish(context.Background(), dto.PresenceEvent{}))
	_, err := broker.Subscribe(context.Background(), uuid.New())
	assert.Error(t, err)
}
