// Package server coordinates client registration, inbound envelope routing,
// and connection cleanup for the AceChat WebSocket transport via the Hub
// type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/acechat/internal/chat"
	"github.com/Tyrowin/acechat/internal/protocol"
)

// inboundEnvelope pairs one parsed envelope with the client it arrived on.
type inboundEnvelope struct {
	client *Client
	env    protocol.Envelope
}

// Hub manages all WebSocket client connections and feeds their envelopes
// into the chat core. Registration, unregistration, and inbound dispatch all
// run on the hub's event loop, one at a time, so disconnect cleanup is never
// interleaved with a command from the same client.
type Hub struct {
	core       *chat.Core
	clients    map[*Client]bool
	inbound    chan inboundEnvelope
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *slog.Logger
}

// NewHub creates a hub bound to the given chat core. The returned Hub is
// ready to manage WebSocket connections once Run is started.
func NewHub(core *chat.Core, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		core:       core,
		clients:    make(map[*Client]bool),
		inbound:    make(chan inboundEnvelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log.With("component", "hub"),
	}
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Core returns the chat core this hub feeds.
func (h *Hub) Core() *chat.Core {
	return h.core
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and inbound envelope dispatch. This method should be
// called in a separate goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.inbound:
			h.core.OnEnvelope(msg.client.session, msg.env)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	client.session = h.core.Connect(client)
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	h.log.Info("client registered", "addr", client.addr, "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Disconnect cleanup runs before the send channel closes so PART
	// notifications still reach the remaining members.
	h.core.OnDisconnect(client.session)
	close(client.send)
	h.log.Info("client unregistered", "addr", client.addr, "clients", clientCount)
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					h.log.Warn("error closing client connection", "addr", client.addr, "error", err)
				}
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// hub is the process-wide hub instance, created by StartHub.
var hub *Hub
