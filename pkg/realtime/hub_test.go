package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	logger, _ := test.NewNullLogger()
	return NewHub(logger)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case msg := <-c.Messages():
		var env Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Envelope{}
	}
}

func TestEncode(t *testing.T) {
	msg, err := Encode("visitorStatusUpdate", map[string]string{"status": "Approved"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"visitorStatusUpdate","data":{"status":"Approved"}}`, string(msg))

	_, err = Encode("bad", make(chan int))
	assert.Error(t, err)
}

func TestHub_BroadcastReachesEverySubscriber(t *testing.T) {
	hub := newTestHub()
	a := hub.Subscribe(4)
	b := hub.Subscribe(4)
	assert.Equal(t, 2, hub.ClientCount())

	require.NoError(t, hub.Broadcast("newVisitorRequest", map[string]string{"flatNumber": "A101"}))

	for _, c := range []*Client{a, b} {
		env := receive(t, c)
		assert.Equal(t, "newVisitorRequest", env.Event)
		assert.JSONEq(t, `{"flatNumber":"A101"}`, string(env.Data))
	}
}

func TestHub_FullSubscriberIsSkipped(t *testing.T) {
	hub := newTestHub()
	slow := hub.Subscribe(1)
	fast := hub.Subscribe(8)

	var delivered, dropped int
	hub.SetObserver(func(_ string, d, x int) {
		delivered += d
		dropped += x
	})

	require.NoError(t, hub.Broadcast("e1", 1))
	require.NoError(t, hub.Broadcast("e2", 2))

	assert.Equal(t, "e1", receive(t, slow).Event)
	select {
	case <-slow.Messages():
		t.Fatal("slow subscriber should have missed the second event")
	default:
	}

	assert.Equal(t, "e1", receive(t, fast).Event)
	assert.Equal(t, "e2", receive(t, fast).Event)
	assert.Equal(t, 3, delivered)
	assert.Equal(t, 1, dropped)
}

func TestHub_UnsubscribedClientGetsNothing(t *testing.T) {
	hub := newTestHub()
	c := hub.Subscribe(4)
	hub.Unsubscribe(c)
	hub.Unsubscribe(c) // idempotent

	require.NoError(t, hub.Broadcast("e", nil))

	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, c.Messages())
	<-c.Done()
}

func TestHub_NoSubscribers(t *testing.T) {
	hub := newTestHub()
	assert.NoError(t, hub.Broadcast("e", "payload"))
}

func TestHub_ConcurrentSubscribeAndBroadcast(t *testing.T) {
	hub := newTestHub()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := hub.Subscribe(1)
			hub.Unsubscribe(c)
		}()
		go func() {
			defer wg.Done()
			_ = hub.Broadcast("tick", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Relay(t *testing.T) {
	hub := newTestHub()
	pub := &recordingPublisher{}
	hub.SetRelay(pub)

	require.NoError(t, hub.Broadcast("amenityBooked", map[string]string{"amenity": "Pool"}))
	require.Len(t, pub.msgs, 1)
	assert.Contains(t, string(pub.msgs[0]), `"event":"amenityBooked"`)

	pub.err = errors.New("redis down")
	c := hub.Subscribe(2)
	err := hub.Broadcast("amenityBooked", nil)
	assert.ErrorContains(t, err, "redis down")
	// local delivery happens before the relay
	assert.Equal(t, "amenityBooked", receive(t, c).Event)
}

func TestHub_DeliverRemote(t *testing.T) {
	hub := newTestHub()
	c := hub.Subscribe(2)

	msg, err := Encode("visitorVerified", map[string]string{"visitorId": "x"})
	require.NoError(t, err)
	hub.DeliverRemote(msg)
	hub.DeliverRemote([]byte("not json"))

	assert.Equal(t, "visitorVerified", receive(t, c).Event)
	assert.Empty(t, c.Messages())
}

func TestRedisRelay_DecodeSkipsOwnEcho(t *testing.T) {
	logger, _ := test.NewNullLogger()
	relay := NewRedisRelay(nil, "events", logger)

	own, _ := json.Marshal(relayFrame{Origin: relay.origin, Message: json.RawMessage(`{"event":"e","data":1}`)})
	_, ok := relay.decode(string(own))
	assert.False(t, ok)

	foreign, _ := json.Marshal(relayFrame{Origin: "other", Message: json.RawMessage(`{"event":"e","data":1}`)})
	msg, ok := relay.decode(string(foreign))
	assert.True(t, ok)
	assert.JSONEq(t, `{"event":"e","data":1}`, string(msg))

	_, ok = relay.decode("garbage")
	assert.False(t, ok)
}

func TestServeConn(t *testing.T) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	hub := NewHub(logger)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeConn(conn)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast("visitorStatusUpdate", map[string]string{"status": "Rejected"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "visitorStatusUpdate", env.Event)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
