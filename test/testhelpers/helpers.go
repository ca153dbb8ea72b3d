// Package testhelpers provides common utilities and helper functions for
// testing the AceChat server.
//
// This package contains reusable test utilities shared across integration
// tests: starting a configured test server, dialing the WebSocket endpoint,
// and exchanging protocol envelopes over it.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope mirrors the wire shape of one protocol message. The integration
// tests keep their own copy so they exercise the server purely through its
// public wire format.
type Envelope struct {
	Command   string   `json:"command"`
	Args      []string `json:"args"`
	User      string   `json:"user,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// BuildWebSocketURL converts a test server's base URL into the ws:// URL of
// the chat endpoint.
func BuildWebSocketURL(t *testing.T, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	return u.String()
}

// ConnectWebSocket creates a WebSocket connection to the specified URL using
// the given Origin header value.
func ConnectWebSocket(wsURL, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEnvelope writes one command envelope as a JSON text frame.
func SendEnvelope(t *testing.T, conn *websocket.Conn, command string, args ...string) {
	t.Helper()
	if args == nil {
		args = []string{}
	}
	payload, err := json.Marshal(Envelope{Command: command, Args: args})
	if err != nil {
		t.Fatalf("Failed to marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to send %s envelope: %v", command, err)
	}
}

// SendRawFrame sends a raw text frame, bypassing envelope encoding.
func SendRawFrame(t *testing.T, conn *websocket.Conn, data []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Failed to send raw frame: %v", err)
	}
}

// EnvelopeReader reads envelopes from one connection. The server may batch
// several newline-separated envelopes into a single frame; the reader splits
// them and hands them back one at a time.
type EnvelopeReader struct {
	conn    *websocket.Conn
	pending [][]byte
}

// NewEnvelopeReader wraps a WebSocket connection for envelope reads.
func NewEnvelopeReader(conn *websocket.Conn) *EnvelopeReader {
	return &EnvelopeReader{conn: conn}
}

// Next returns the next envelope, waiting up to timeout for a frame.
func (r *EnvelopeReader) Next(t *testing.T, timeout time.Duration) Envelope {
	t.Helper()
	for len(r.pending) == 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		_, frame, err := r.conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read envelope: %v", err)
		}
		for _, part := range bytes.Split(frame, []byte{'\n'}) {
			if len(bytes.TrimSpace(part)) > 0 {
				r.pending = append(r.pending, part)
			}
		}
	}

	raw := r.pending[0]
	r.pending = r.pending[1:]

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Failed to decode envelope %q: %v", raw, err)
	}
	return env
}

// ExpectNoEnvelope asserts that no envelope arrives within the timeout.
func (r *EnvelopeReader) ExpectNoEnvelope(t *testing.T, timeout time.Duration) {
	t.Helper()
	if len(r.pending) > 0 {
		t.Fatalf("Expected no envelope, but %d were already buffered", len(r.pending))
	}
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, frame, err := r.conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no envelope, but received %q", frame)
	}
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
