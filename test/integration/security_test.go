// Package integration contains security-focused integration tests.
//
// These tests verify that the transport constraints are properly enforced,
// including origin validation and message size limits.
package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/acechat/internal/server"
	"github.com/Tyrowin/acechat/test/testhelpers"
)

// TestOriginValidation tests origin allow-list enforcement on the upgrade.
func TestOriginValidation(t *testing.T) {
	server.StartHub(nil)

	mux := server.SetupRoutes()
	testServer := testhelpers.CreateTestServer(mux)
	defer testServer.Close()
	t.Cleanup(func() { server.SetConfig(nil) })

	wsURL := testhelpers.BuildWebSocketURL(t, testServer.URL)

	t.Run("Allowed origin connects", func(t *testing.T) {
		cfg := server.NewConfig()
		cfg.AllowedOrigins = []string{testServer.URL}
		server.SetConfig(cfg)

		conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
		if err != nil {
			t.Fatalf("Expected connection from allowed origin, got %v", err)
		}
		_ = conn.Close()
	})

	t.Run("Disallowed origin is rejected", func(t *testing.T) {
		cfg := server.NewConfig()
		cfg.AllowedOrigins = []string{testServer.URL}
		server.SetConfig(cfg)

		if conn, err := testhelpers.ConnectWebSocket(wsURL, "http://evil.example.com"); err == nil {
			_ = conn.Close()
			t.Fatal("Expected handshake from disallowed origin to fail")
		}
	})

	t.Run("Missing origin is rejected", func(t *testing.T) {
		cfg := server.NewConfig()
		cfg.AllowedOrigins = []string{testServer.URL}
		server.SetConfig(cfg)

		if conn, err := testhelpers.ConnectWebSocket(wsURL, ""); err == nil {
			_ = conn.Close()
			t.Fatal("Expected handshake without an origin to fail")
		}
	})

	t.Run("Wildcard allows any origin", func(t *testing.T) {
		cfg := server.NewConfig()
		cfg.AllowedOrigins = []string{"*"}
		server.SetConfig(cfg)

		conn, err := testhelpers.ConnectWebSocket(wsURL, "http://anywhere.example.com")
		if err != nil {
			t.Fatalf("Expected wildcard config to accept any origin, got %v", err)
		}
		_ = conn.Close()
	})
}

// TestMessageSizeLimit verifies that frames over the configured limit close
// the connection while frames under it are processed normally.
func TestMessageSizeLimit(t *testing.T) {
	server.StartHub(nil)

	mux := server.SetupRoutes()
	testServer := testhelpers.CreateTestServer(mux)
	defer testServer.Close()
	t.Cleanup(func() { server.SetConfig(nil) })

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testServer.URL}
	cfg.MaxMessageSize = 256
	server.SetConfig(cfg)

	wsURL := testhelpers.BuildWebSocketURL(t, testServer.URL)

	t.Run("Frame under the limit is processed", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer func() { _ = conn.Close() }()
		r := testhelpers.NewEnvelopeReader(conn)

		claimUsername(t, conn, r, "dan")
	})

	t.Run("Oversized frame closes the connection", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer func() { _ = conn.Close() }()

		oversized := `{"command":"USER","args":["` + strings.Repeat("x", 512) + `"]}`
		testhelpers.SendRawFrame(t, conn, []byte(oversized))

		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Fatal("Expected the server to close the connection after an oversized frame")
		}
	})
}
