package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Connection timing. Pings go out often enough that the peer's pong
// always lands before the read deadline.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Viewers only send control frames.
	maxMessageSize = 4 << 10
	sendBuffer     = 64
)

// Client is one websocket viewer attached to a hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient registers conn with hub. It returns nil when the hub has
// stopped.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{hub: hub, conn: conn, send: make(chan Message, sendBuffer)}
	select {
	case hub.register <- c:
		return c
	case <-hub.done:
		return nil
	}
}

// Serve attaches conn to the hub and returns once it disconnects. It is
// meant to be the whole body of a websocket handler.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := NewClient(h, conn)
	if c == nil {
		conn.Close()
		return
	}
	c.Run()
}

// Run writes queued messages on a separate goroutine and reads until the
// peer goes away.
func (c *Client) Run() {
	go c.write()
	c.read()
}

func (c *Client) read() {
	defer c.leave()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
}

func (c *Client) write() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.deadline()
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg.Data
			if msg.Type == BinaryMessage {
				kind = websocket.BinaryMessage
			}
		case <-ping.C:
			kind = websocket.PingMessage
		}

		c.deadline()
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (c *Client) deadline() {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
}
