// Package server implements the WebSocket transport and HTTP surface for the
// AceChat server.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers. The chat protocol
// itself lives in internal/chat; this package only moves frames between
// connections and the chat core.
package server
