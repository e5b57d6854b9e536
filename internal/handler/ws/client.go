package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512
)

// Client is one WebSocket subscriber. The hub owns registration; the
// client owns its read and write pumps.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
}

// sendInitialState queues the current full cache state so a fresh
// subscriber does not wait for the next periodic push.
func (c *Client) sendInitialState() {
	now := time.Now()
	state := fullState{Assets: c.hub.store.GetAll(now)}
	if v, ok := c.hub.store.Sentiment(now); ok {
		state.Sentiment = v
	}
	if v, ok := c.hub.store.Overview(now); ok {
		state.Overview = v
	}
	if v, ok := c.hub.store.AltcoinSeason(now); ok {
		state.AltcoinSeason = v
	}

	payload, err := json.Marshal(envelope{Type: "full", Data: state, At: now})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump drains the send channel and keeps the connection alive
// with pings. Exits when the hub closes the channel.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-directional.
// Its job is liveness: pong handling and detecting disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
