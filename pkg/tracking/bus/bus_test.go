package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToRoom(t *testing.T) {
	eventBus := NewBus(nil)

	first := eventBus.Subscribe(0)
	second := eventBus.Subscribe(0)
	other := eventBus.Subscribe(0)

	first.Join(VehicleTopic("truck-1"))
	second.Join(VehicleTopic("truck-1"))
	other.Join(VehicleTopic("truck-2"))

	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "hello")

	assert.Equal(t, "hello", <-first.Events())
	assert.Equal(t, "hello", <-second.Events())

	select {
	case event := <-other.Events():
		t.Fatalf("unexpected event on other topic: %v", event)
	default:
	}
}

func TestSubscriberCanFollowMultipleTopics(t *testing.T) {
	eventBus := NewBus(nil)

	subscriber := eventBus.Subscribe(0)
	subscriber.Join(VehicleTopic("truck-1"))
	subscriber.Join(TenantTopic("acme"))

	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "a")
	eventBus.Publish(context.Background(), TenantTopic("acme"), "b")

	assert.Equal(t, "a", <-subscriber.Events())
	assert.Equal(t, "b", <-subscriber.Events())
}

func TestLeaveStopsDelivery(t *testing.T) {
	eventBus := NewBus(nil)

	subscriber := eventBus.Subscribe(0)
	subscriber.Join(VehicleTopic("truck-1"))
	subscriber.Leave(VehicleTopic("truck-1"))

	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "lost")

	select {
	case event := <-subscriber.Events():
		t.Fatalf("unexpected event after leave: %v", event)
	default:
	}
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	eventBus := NewBus(nil)

	slow := eventBus.Subscribe(1)
	healthy := eventBus.Subscribe(16)

	slow.Join(VehicleTopic("truck-1"))
	healthy.Join(VehicleTopic("truck-1"))

	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "one")
	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "two")

	// the slow subscriber got the first event, then its channel was closed
	assert.Equal(t, "one", <-slow.Events())
	_, open := <-slow.Events()
	assert.False(t, open)
	assert.Equal(t, "outbound buffer overflow", slow.CloseReason)

	// the rest of the room is unaffected
	assert.Equal(t, "one", <-healthy.Events())
	assert.Equal(t, "two", <-healthy.Events())

	// a later publish must not panic on the closed subscriber
	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "three")
	assert.Equal(t, "three", <-healthy.Events())
}

func TestCloseIsIdempotent(t *testing.T) {
	eventBus := NewBus(nil)

	subscriber := eventBus.Subscribe(0)
	subscriber.Join(VehicleTopic("truck-1"))

	subscriber.Close()
	subscriber.Close()

	_, open := <-subscriber.Events()
	require.False(t, open)

	eventBus.Publish(context.Background(), VehicleTopic("truck-1"), "ignored")
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "vehicle:truck-1", VehicleTopic("truck-1"))
	assert.Equal(t, "shipment:ship-9", ShipmentTopic("ship-9"))
	assert.Equal(t, "tenant:acme", TenantTopic("acme"))
	assert.Equal(t, "accident-zone:blackspot", AccidentZoneTopic("blackspot"))
}
