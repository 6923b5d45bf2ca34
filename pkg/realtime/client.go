package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Client is one subscriber. Its send channel is never closed, so a delivery
// racing with Unsubscribe cannot panic; Done is closed instead.
type Client struct {
	ID   string
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		ID:   uuid.NewString(),
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Messages returns the client's queue of encoded events
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Done is closed once the client has been unsubscribed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
