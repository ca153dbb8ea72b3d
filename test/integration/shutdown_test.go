package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/acechat/internal/chat"
	"github.com/Tyrowin/acechat/internal/server"
	"github.com/Tyrowin/acechat/test/testhelpers"
)

// TestGracefulShutdown verifies that the hub shuts down gracefully when asked.
func TestGracefulShutdown(t *testing.T) {
	hub := server.NewHub(chat.NewCore(nil), nil)
	go hub.Run()

	time.Sleep(50 * time.Millisecond)

	if err := hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}
}

// TestGracefulShutdownWithClients verifies that active client connections
// are properly closed during graceful shutdown.
func TestGracefulShutdownWithClients(t *testing.T) {
	wsURL, origin := startChatServer(t)

	const numClients = 5
	clients := make([]*websocket.Conn, numClients)
	for i := range clients {
		conn, err := testhelpers.ConnectWebSocket(wsURL, origin)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		clients[i] = conn
	}
	time.Sleep(100 * time.Millisecond)

	if err := server.GetHub().Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}

	closedClients := 0
	for i, conn := range clients {
		_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			closedClients++
		} else {
			t.Errorf("Client %d still connected after shutdown", i)
		}
		_ = conn.Close()
	}

	if closedClients != numClients {
		t.Errorf("Expected %d clients to be closed, got %d", numClients, closedClients)
	}
}

// TestShutdownTimeout verifies that shutdown respects its timeout.
func TestShutdownTimeout(t *testing.T) {
	hub := server.NewHub(chat.NewCore(nil), nil)
	go hub.Run()

	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	err := hub.Shutdown(100 * time.Millisecond)
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Errorf("Shutdown took too long: %v", elapsed)
	}
	if err != nil {
		t.Logf("Shutdown returned error (may be expected with short timeout): %v", err)
	}
}

// TestConcurrentShutdown verifies that multiple shutdown calls are safe.
func TestConcurrentShutdown(t *testing.T) {
	hub := server.NewHub(chat.NewCore(nil), nil)
	go hub.Run()

	time.Sleep(50 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make(chan error, 3)

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hub.Shutdown(2 * time.Second); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Logf("Shutdown error: %v", err)
	}
}
