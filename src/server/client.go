package server

import (
	"time"

	"alert-relay/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096 // Commands are tiny JSON objects
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one live client session. The id comes from the connection path
// and is unique among currently connected clients; the send channel is the
// delivery handle the registry enqueues alerts on.
type Client struct {
	gateway *Gateway
	id      string
	conn    *websocket.Conn
	send    chan interface{}
}

// -----------------------------------------------------------------------------
// relay.Outbound implementation
// -----------------------------------------------------------------------------

func (c *Client) ClientID() string {
	return c.id
}

// -----------------------------------------------------------------------------

// Enqueue buffers an alert frame without blocking. A full buffer means the
// peer stopped draining; the connection is closed so the read pump tears
// the session down through the normal disconnect path.
func (c *Client) Enqueue(msg models.MAlertMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.conn.Close()
		return false
	}
}

// -----------------------------------------------------------------------------

// reply pushes a structured rejection back to the client, best effort.
func (c *Client) reply(text string) {
	select {
	case c.send <- models.MErrorReply{Error: text}:
	default:
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming commands from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		// Removal precedes closing the send channel: the registry lock
		// guarantees no fan-out enqueues after RemoveSession returns.
		c.gateway.Registry.RemoveSession(c.id)
		close(c.send)
		c.conn.Close()
		c.gateway.Logger.Info("Client disconnected: %s", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.Logger.Info("WebSocket error (%s): %v", c.id, err)
			}
			break
		}
		c.gateway.handleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Session closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.gateway.Logger.Info("Write error (%s): %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
