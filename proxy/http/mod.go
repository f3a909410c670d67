// Package http implements the proxy with an HTTP server. Routes are handled by
// gorilla/mux so that handlers can read the variables of the path.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
)

type key int

const (
	requestIDKey key = 0
)

// HeaderRequestID is the header that carries the identifier of a request.
const HeaderRequestID = "X-Request-Id"

const shutdownTimeout = 10 * time.Second

// HTTP defines a proxy http
//
// - implements proxy.Proxy
type HTTP struct {
	sync.Mutex

	router     *mux.Router
	handler    http.Handler
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	quit       chan struct{}
}

// NewHTTP creates a new proxy http. An empty address means a random free port
// on the loopback interface.
func NewHTTP(listenAddr string) *HTTP {
	logger := ballot.Logger.With().Timestamp().Str("role", "http proxy").Logger()

	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	router := mux.NewRouter()

	nextRequestID := func() string {
		return xid.New().String()
	}

	return &HTTP{
		router:     router,
		handler:    tracing(nextRequestID)(logging(logger)(router)),
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
	}
}

// Listen implements proxy.Proxy. It blocks until the server is stopped. This
// function can be called multiple times provided the server is not running,
// ie. Stop() has been called.
func (h *HTTP) Listen() {
	h.logger.Info().Msg("Client server is starting...")

	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		h.logger.Error().Msgf("failed to create conn '%s': %v", h.listenAddr, err)
		panic("failed to create conn '" + h.listenAddr + "': " + err.Error())
	}

	server := &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: shutdownTimeout,
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	done := make(chan struct{})

	go func() {
		<-h.quit
		h.logger.Info().Msg("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		err := server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("Could not gracefully shutdown the server")
		}

		close(done)
	}()

	h.logger.Info().Msgf("Server is ready to handle requests at http://%s", ln.Addr())

	err = server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		h.logger.Err(err).Msgf("Could not listen on %s", h.listenAddr)
	}

	<-done

	h.Lock()
	h.ln = nil
	h.Unlock()

	h.logger.Info().Msg("Server stopped")
}

// Stop implements proxy.Proxy. It should be called only once in order to make
// a new Listen() successful.
func (h *HTTP) Stop() {
	h.quit <- struct{}{}
}

// GetAddr implements proxy.Proxy.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements proxy.Proxy.
func (h *HTTP) RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	h.router.HandleFunc(path, handler)
}

// GetRequestID returns the identifier of the request, or "unknown".
func GetRequestID(r *http.Request) string {
	requestID, ok := r.Context().Value(requestIDKey).(string)
	if !ok {
		return "unknown"
	}

	return requestID
}

// logging is a utility function that logs the http server events
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				logger.Info().Str("requestID", GetRequestID(r)).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// tracing is a utility function that adds header tracing
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = nextRequestID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set(HeaderRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
