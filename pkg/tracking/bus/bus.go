package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fleetline/fleetline/pkg/stats"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultSubscriberBuffer = 256
const mirrorPublishTimeout = 100 * time.Millisecond

func VehicleTopic(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s", vehicleID)
}

func ShipmentTopic(shipmentID string) string {
	return fmt.Sprintf("shipment:%s", shipmentID)
}

func TenantTopic(tenantID string) string {
	return fmt.Sprintf("tenant:%s", tenantID)
}

func AccidentZoneTopic(zoneID string) string {
	return fmt.Sprintf("accident-zone:%s", zoneID)
}

// Subscriber is an ephemeral association of a transport connection with a set
// of topics. The transport owns the subscriber and must Close it when the
// connection goes away; the bus holds no other reference to it.
type Subscriber struct {
	ID string

	bus    *Bus
	events chan any

	mutex       sync.Mutex
	closed      bool
	CloseReason string
}

// Events is the subscriber's outbound stream. It is closed when the
// subscriber is evicted or Close is called.
func (s *Subscriber) Events() <-chan any {
	return s.events
}

func (s *Subscriber) Join(topic string) {
	s.bus.join(topic, s)
}

func (s *Subscriber) Leave(topic string) {
	s.bus.leave(topic, s)
}

func (s *Subscriber) Close() {
	s.close("closed by transport")
}

func (s *Subscriber) close(reason string) {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	s.closed = true
	s.CloseReason = reason
	close(s.events)
	s.mutex.Unlock()

	s.bus.removeEverywhere(s)
}

// send delivers without blocking. It reports false when the buffer is full,
// which the bus treats as grounds for eviction.
func (s *Subscriber) send(event any) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return true
	}

	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// Bus is a named-room multicast with at-most-once delivery to connected
// subscribers. There is no durable queue; reconnecting clients re-fetch state
// from the position store.
type Bus struct {
	mutex sync.RWMutex
	rooms map[string]map[*Subscriber]bool

	// Optional mirror so observers in other processes can follow topics over
	// redis pub/sub
	mirror redis.UniversalClient
}

func NewBus(mirror redis.UniversalClient) *Bus {
	return &Bus{
		rooms:  map[string]map[*Subscriber]bool{},
		mirror: mirror,
	}
}

func (b *Bus) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	return &Subscriber{
		ID:     uuid.New().String(),
		bus:    b,
		events: make(chan any, buffer),
	}
}

func (b *Bus) join(topic string, subscriber *Subscriber) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.rooms[topic] == nil {
		b.rooms[topic] = map[*Subscriber]bool{}
	}
	b.rooms[topic][subscriber] = true
}

func (b *Bus) leave(topic string, subscriber *Subscriber) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.removeFromRoom(topic, subscriber)
}

func (b *Bus) removeFromRoom(topic string, subscriber *Subscriber) {
	delete(b.rooms[topic], subscriber)
	if len(b.rooms[topic]) == 0 {
		delete(b.rooms, topic)
	}
}

func (b *Bus) removeEverywhere(subscriber *Subscriber) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for topic := range b.rooms {
		b.removeFromRoom(topic, subscriber)
	}
}

// Publish delivers the event to every subscriber in the room without ever
// blocking: a subscriber whose buffer is full is closed and removed, leaving
// the rest of the room unaffected.
func (b *Bus) Publish(ctx context.Context, topic string, event any) {
	b.mutex.RLock()
	subscribers := make([]*Subscriber, 0, len(b.rooms[topic]))
	for subscriber := range b.rooms[topic] {
		subscribers = append(subscribers, subscriber)
	}
	b.mutex.RUnlock()

	for _, subscriber := range subscribers {
		if !subscriber.send(event) {
			stats.SubscribersEvicted.Inc()
			log.Warn().Str("subscriber", subscriber.ID).Str("topic", topic).Msg("Evicting slow subscriber")

			subscriber.close("outbound buffer overflow")
		}
	}

	b.publishMirror(ctx, topic, event)
}

func (b *Bus) publishMirror(ctx context.Context, topic string, event any) {
	if b.mirror == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	mirrorCtx, cancel := context.WithTimeout(ctx, mirrorPublishTimeout)
	defer cancel()

	if err := b.mirror.Publish(mirrorCtx, "fleetline:"+topic, payload).Err(); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to mirror event to redis")
	}
}
