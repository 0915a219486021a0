/*
Package presence contains the core logic for tracking which users are online and announcing
presence changes to every connected client.

This file defines the Client struct, the websocket-backed Handle. It owns the read and write
pumps of one connection and reports the connection's end to the Hub.
*/
package presence

import (
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hzpresence/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 4096

	// DefaultSendQueueSize is the outbound queue length used when none is configured.
	DefaultSendQueueSize = 256

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// Client is an active WebSocket connection and the identity it announced, if any.
type Client struct {
	// transport-level connection identifier.
	id string

	// identity supplied at connect time; empty for anonymous connections.
	identity string

	hub *Hub

	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// mu guards closed and kickReason, and serialises Send against closing send.
	mu         sync.Mutex
	closed     bool
	kickReason string

	logger zerolog.Logger
}

// NewClient constructs a Client. queueSize <= 0 selects DefaultSendQueueSize.
func NewClient(hub *Hub, conn *websocket.Conn, id, identity string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	return &Client{
		id:       id,
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, queueSize),
		logger: logx.Logger().With().
			Str("conn_id", id).
			Str("user_id", identity).
			Logger(),
	}
}

// ID implements Handle.
func (c *Client) ID() string {
	return c.id
}

// Identity returns the user identity announced by the client.
func (c *Client) Identity() string {
	return c.identity
}

// Send implements Handle. It never blocks and drops the frame when the queue is full or closed.
func (c *Client) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return false
	}
}

// Kick implements Handle. The write pump sends a 4001 close frame and closes the connection.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Kicking client connection.")

	c.closeQueue(reason)
}

// Release implements Handle.
func (c *Client) Release() {
	c.closeQueue("")
}

func (c *Client) closeQueue(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.kickReason = reason
	close(c.send)
}

// Start announces the client to the Hub and runs both pumps. It returns once the connection is gone.
func (c *Client) Start() {
	go c.WritePump()

	c.hub.Open(c, c.identity)

	c.ReadPump()
}

// ReadPump drains the connection, keeping the read deadline alive through pongs.
// Inbound frames carry no meaning for presence and are discarded.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, WsCloseCodeSessionKicked) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.logger.Debug().Int("msg_type", msgType).Msg("Ignoring inbound frame")
	}
}

// cleanupOnDisconnect reports the closed connection to the Hub and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Close(c, c.identity)

	// the hub has normally released the queue already; this covers a stopped hub
	c.Release()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames and periodic pings until the queue is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit so ReadPump unblocks
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame()); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if isClosedConnError(err) {
			c.logger.Debug().Err(err).Msg("Peer gone while writing message")
		} else {
			c.logger.Error().Err(err).Msg("Error writing message")
		}
		return false
	}

	return true
}

func (c *Client) closeFrame() []byte {
	c.mu.Lock()
	reason := c.kickReason
	c.mu.Unlock()

	if reason == "" {
		return websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	}

	return websocket.FormatCloseMessage(WsCloseCodeSessionKicked, reason)
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if isClosedConnError(err) {
			c.logger.Debug().Err(err).Msg("Peer gone while writing ping")
		} else {
			c.logger.Error().Err(err).Msg("Error writing ping")
		}
		return false
	}

	return true
}

// isClosedConnError reports whether err only means the peer or the read pump already closed the socket.
func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
