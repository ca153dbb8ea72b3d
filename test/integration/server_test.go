package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tyrowin/acechat/internal/server"
	"github.com/Tyrowin/acechat/test/testhelpers"
)

// TestHealthEndpointIntegration tests the health endpoint with the actual server configuration
func TestHealthEndpointIntegration(t *testing.T) {
	mux := server.SetupRoutes()

	testServer := httptest.NewServer(mux)
	defer testServer.Close()

	resp := testhelpers.MakeRequest(t, http.MethodGet, testServer.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	contentType := resp.Header.Get("Content-Type")
	expectedContentType := "text/plain"
	if contentType != expectedContentType {
		t.Errorf("Expected content type %s, got %s", expectedContentType, contentType)
	}
}

// TestWebSocketEndpointRejectsNonGet verifies the upgrade endpoint only
// accepts GET requests.
func TestWebSocketEndpointRejectsNonGet(t *testing.T) {
	server.StartHub(nil)
	mux := server.SetupRoutes()
	testServer := httptest.NewServer(mux)
	defer testServer.Close()

	resp := testhelpers.MakeRequest(t, http.MethodPost, testServer.URL+"/ws")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusMethodNotAllowed)
}

// TestFullServerIntegration tests the complete server setup using the server
// package configuration.
func TestFullServerIntegration(t *testing.T) {
	config := server.NewConfig()
	mux := server.SetupRoutes()
	srv := server.CreateServer(config.Addr, mux)

	testServer := httptest.NewUnstartedServer(mux)
	testServer.Config = srv
	testServer.Start()
	defer testServer.Close()

	resp := testhelpers.MakeRequest(t, http.MethodGet, testServer.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	// Verify server timeouts are configured correctly
	if srv.ReadTimeout != 15*time.Second {
		t.Errorf("Expected ReadTimeout 15s, got %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 15*time.Second {
		t.Errorf("Expected WriteTimeout 15s, got %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout 60s, got %v", srv.IdleTimeout)
	}
}
