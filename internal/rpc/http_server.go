package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"golang.org/x/net/netutil"

	"github.com/tendermint/naivechain/libs/log"
)

// Config is a HTTP server configuration.
type Config struct {
	// see netutil.LimitListener
	MaxOpenConnections int
	// mirrors http.Server#ReadTimeout
	ReadTimeout time.Duration
	// mirrors http.Server#WriteTimeout
	WriteTimeout time.Duration
	// MaxBodyBytes controls the maximum number of bytes the
	// server will read parsing the request body.
	MaxBodyBytes int64
	// mirrors http.Server#MaxHeaderBytes
	MaxHeaderBytes int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxOpenConnections: 0, // unlimited
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxBodyBytes:       int64(1000000), // 1MB
		MaxHeaderBytes:     1 << 20,        // same as the net/http default
	}
}

// Listen starts a new net.Listener on the given address. It returns an error
// if the address is invalid or the call to Listen() fails.
func Listen(addr string, maxOpenConnections int) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %v: %v", addr, err)
	}
	if maxOpenConnections > 0 {
		listener = netutil.LimitListener(listener, maxOpenConnections)
	}
	return listener, nil
}

// Serve creates a http.Server and calls Serve with the given listener. It
// wraps handler to recover panics and limit the request body size. It
// returns when ctx is done, after shutting the server down.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, logger log.Logger, config *Config) error {
	logger.Info("starting RPC HTTP server", "addr", listener.Addr())

	h := recoverAndLogHandler(maxBytesHandler(handler, config.MaxBodyBytes), logger)
	s := &http.Server{
		Handler:        h,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	sig := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = s.Shutdown(sctx)
		case <-sig:
		}
	}()

	defer close(sig)
	if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("RPC HTTP server stopped", "err", err)
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v interface{}) {
	bz, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", "err", err)
		status = http.StatusInternalServerError
		bz = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(bz); err != nil {
		logger.Debug("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, err error) {
	writeJSON(w, logger, status, ErrorResponse{Error: err.Error()})
}

//-----------------------------------------------------------------------------

// recoverAndLogHandler wraps an HTTP handler, adding error logging. If the
// inner handler panics, the wrapper recovers, logs and sends an HTTP 500
// error response to the client.
func recoverAndLogHandler(handler http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Wrap the ResponseWriter to remember the status
		rww := &responseWriterWrapper{-1, w}
		begin := time.Now()

		defer func() {
			if e := recover(); e != nil {
				logger.Error("panic in RPC HTTP handler", "err", e, "stack", string(debug.Stack()))
				writeError(rww, logger, http.StatusInternalServerError, fmt.Errorf("internal server error: %v", e))
			}

			// Finally, log.
			if rww.Status == -1 {
				rww.Status = http.StatusOK
			}
			logger.Debug("served RPC HTTP response",
				"method", r.Method,
				"url", r.URL,
				"status", rww.Status,
				"duration", time.Since(begin).Milliseconds(),
				"remoteAddr", r.RemoteAddr,
			)
		}()

		handler.ServeHTTP(rww, r)
	})
}

func maxBytesHandler(h http.Handler, n int64) http.Handler {
	if n <= 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h.ServeHTTP(w, r)
	})
}

// Remember the status for logging
type responseWriterWrapper struct {
	Status int
	http.ResponseWriter
}

func (w *responseWriterWrapper) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// implements http.Hijacker
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
