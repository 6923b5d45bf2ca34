package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Envelope is the wire format of every event pushed to subscribers
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode marshals an event once so it can be fanned out as raw bytes
func Encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return msg, nil
}

// Broadcaster pushes an event to every connected subscriber
type Broadcaster interface {
	Broadcast(event string, payload interface{}) error
}

// Publisher forwards locally originated events to other instances
type Publisher interface {
	Publish(ctx context.Context, msg []byte) error
}

// DeliveryObserver is told how many subscribers received or missed each event
type DeliveryObserver func(event string, delivered, dropped int)

// Hub is the in-process subscriber registry. Delivery never blocks: a subscriber
// whose buffer is full misses the event. There is no replay.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	relay          Publisher
	publishTimeout time.Duration
	observer       DeliveryObserver
	logger         *logrus.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]struct{}),
		publishTimeout: 2 * time.Second,
		logger:         logger,
	}
}

// SetRelay enables cross-instance fan-out
func (h *Hub) SetRelay(p Publisher) {
	h.relay = p
}

// SetObserver installs a delivery callback (metrics)
func (h *Hub) SetObserver(o DeliveryObserver) {
	h.observer = o
}

// Subscribe registers a new client with the given send buffer
func (h *Hub) Subscribe(buffer int) *Client {
	c := newClient(buffer)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unsubscribe removes a client and signals its writer to stop
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast encodes the event, delivers it locally and hands it to the relay
func (h *Hub) Broadcast(event string, payload interface{}) error {
	msg, err := Encode(event, payload)
	if err != nil {
		return err
	}

	h.deliver(event, msg)

	if h.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.publishTimeout)
		defer cancel()
		if err := h.relay.Publish(ctx, msg); err != nil {
			return fmt.Errorf("failed to relay %s: %w", event, err)
		}
	}

	return nil
}

// DeliverRemote pushes an already encoded message that arrived from another instance
func (h *Hub) DeliverRemote(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.WithError(err).Warn("Dropping malformed relayed event")
		return
	}
	h.deliver(env.Event, msg)
}

func (h *Hub) deliver(event string, msg []byte) {
	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, c := range snapshot {
		if c.enqueue(msg) {
			delivered++
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		h.logger.WithFields(logrus.Fields{
			"event":   event,
			"dropped": dropped,
		}).Warn("Slow subscribers skipped")
	}
	if h.observer != nil {
		h.observer(event, delivered, dropped)
	}
}
