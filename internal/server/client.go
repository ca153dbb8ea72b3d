// Package server manages individual WebSocket clients, handling read/write
// pumps, envelope decoding, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/acechat/internal/chat"
	"github.com/Tyrowin/acechat/internal/protocol"
)

// Client represents one WebSocket connection in the chat system. It owns the
// raw connection and the buffered outbound frame channel, and carries the
// chat session the hub assigned to it. Client implements chat.Conn, which is
// how the core's broadcast engine reaches this connection.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	session        *chat.Session
	addr           string
	closed         bool
	maxMessageSize int64
	log            *slog.Logger
}

// NewClient creates a new Client for the provided WebSocket connection. The
// send channel is buffered so envelope delivery from the core never blocks
// on this connection's I/O.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
		log:            hub.log.With("addr", addr),
	}
}

// Send enqueues one serialized envelope for this connection. It never
// blocks: a closed client or a full outbound buffer reports false and the
// frame is dropped.
func (c *Client) Send(payload []byte) bool {
	defer func() {
		// The send channel may close concurrently with a delivery.
		_ = recover()
	}()

	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.log.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn("frame exceeded maximum size", "max_bytes", c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.log.Info("client disconnected", "error", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Info("client connection closed", "error", err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.log.Warn("unexpected websocket error", "error", err)
		return true
	}

	c.log.Warn("websocket read error", "error", err)
	return true
}

// processFrame decodes one inbound frame and hands the envelope to the hub
// for dispatch. A frame that fails the envelope shape check is answered with
// an ERROR envelope directly; the core never sees it.
func (c *Client) processFrame(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.log.Debug("invalid frame", "error", err)
		var perr *protocol.Error
		if !errors.As(err, &perr) {
			perr = protocol.ErrMalformedEnvelope()
		}
		c.sendErrorEnvelope(perr)
		return
	}

	select {
	case c.hub.inbound <- inboundEnvelope{client: c, env: env}:
	case <-c.hub.ctx.Done():
	}
}

func (c *Client) sendErrorEnvelope(perr *protocol.Error) {
	payload, err := protocol.Encode(protocol.ErrorEnvelope(perr))
	if err != nil {
		c.log.Error("failed to encode error envelope", "error", err)
		return
	}
	c.Send(payload)
}

func (c *Client) readPump() {
	defer func() {
		// During hub shutdown the event loop has exited, so the
		// unregister channel has no receiver.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Warn("error closing connection in readPump", "error", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error closing connection in writePump", "error", err)
		}
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Warn("error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing close message", "error", err)
		}
	}
	return false
}

// writeTextMessage writes one envelope frame and any queued frames
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Warn("error creating writer", "error", err)
		return false
	}

	if !c.writeMessageContent(w, message) {
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	return c.closeWriter(w)
}

// writeMessageContent writes the main message content
func (c *Client) writeMessageContent(w io.WriteCloser, message []byte) bool {
	if _, err := w.Write(message); err != nil {
		c.log.Warn("error writing message", "error", err)
		return false
	}
	return true
}

// writeQueuedMessages writes any additional queued messages
func (c *Client) writeQueuedMessages(w io.WriteCloser) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		if !c.writeQueuedMessage(w) {
			return false
		}
	}
	return true
}

// writeQueuedMessage writes a single queued message with newline separator
func (c *Client) writeQueuedMessage(w io.WriteCloser) bool {
	if _, err := w.Write([]byte{'\n'}); err != nil {
		c.log.Warn("error writing newline", "error", err)
		return false
	}
	if _, err := w.Write(<-c.send); err != nil {
		c.log.Warn("error writing queued message", "error", err)
		return false
	}
	return true
}

// closeWriter closes the message writer
func (c *Client) closeWriter(w io.WriteCloser) bool {
	if err := w.Close(); err != nil {
		c.log.Warn("error closing writer", "error", err)
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("error writing ping message", "error", err)
		return false
	}
	return true
}
