package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// ServeConn attaches a WebSocket connection to the hub and blocks until it closes.
// Subscribers only listen; anything they send is discarded.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	client := h.Subscribe(sendBuffer)
	log := h.logger.WithFields(logrus.Fields{
		"client_id": client.ID,
		"remote":    conn.RemoteAddr().String(),
	})
	log.Info("Subscriber connected")

	go h.writePump(conn, client, log)
	h.readPump(conn, client)

	log.Info("Subscriber disconnected")
}

func (h *Hub) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.Unsubscribe(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, client *Client, log *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-client.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("Write to subscriber failed")
				h.Unsubscribe(client)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unsubscribe(client)
				return
			}
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
