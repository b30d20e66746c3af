package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lms_backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	connID string
	userID string

	hub  *Hub
	conn *websocket.Conn
	send chan Event
	log  logger.Logger
}

func NewWebSocketClient(h *Hub, conn *websocket.Conn, log logger.Logger) *WebSocketClient {
	return &WebSocketClient{
		connID: uuid.New().String(),
		hub:    h,
		conn:   conn,
		send:   make(chan Event, 256),
		log:    log,
	}
}

func (c *WebSocketClient) ConnID() string            { return c.connID }
func (c *WebSocketClient) UserID() string            { return c.userID }
func (c *WebSocketClient) SetUserID(id string)       { c.userID = id }
func (c *WebSocketClient) SendChannel() chan<- Event { return c.send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the send channel, which stops the write pump.
func (c *WebSocketClient) Close() {
	close(c.send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "conn", c.connID, "error", err)
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.log.Warn("malformed push event", "conn", c.connID, "error", err)
			continue
		}

		c.hub.HandleClientEvent(c, ev)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

			// Flush any queued events in the same writer window.
			for i := len(c.send); i > 0; i-- {
				if err := c.conn.WriteJSON(<-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
