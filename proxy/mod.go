// Package proxy defines the interface of the server that exposes the ledger to
// the clients.
package proxy

import (
	"net"
	"net/http"
)

// Proxy defines the primitives to implement an http server that handles client
// side requests.
type Proxy interface {
	// Listen starts the proxy server. This call is assumed to be blocking.
	Listen()

	// Stop stops the proxy server.
	Stop()

	// GetAddr returns the address the server is listening on, or nil if it is
	// not running.
	GetAddr() net.Addr

	// RegisterHandler registers a new handler for the path. The path can hold
	// variables in the form of /elections/{id}.
	RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request))
}
