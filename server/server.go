// Package server implements a JSON-RPC over HTTP endpoint that answers the
// way the report provider does. It backs the client tests and local runs.
//
// Request processing:
//
//	POST body → one envelope or a batch array
//	  → for each envelope: go handle (batch items run in parallel)
//	    → registered HandlerFunc → reply envelope(s) with the request id
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"avtocod/logging"
	"avtocod/message"
	"avtocod/registry"
)

// Standard JSON-RPC codes the server answers with on its own.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
)

// HandlerFunc answers one call. Exactly one of result and error is used.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *message.ErrorObject)

type headerKey struct{}

// Header returns the HTTP headers of the request a handler is answering.
func Header(ctx context.Context) http.Header {
	h, _ := ctx.Value(headerKey{}).(http.Header)
	return h
}

// Call is one recorded envelope.
type Call struct {
	ID     json.RawMessage
	Method string
	Params json.RawMessage
	Header http.Header
	Batch  bool
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// reply always carries both result and error, one of them null.
type reply struct {
	JSONRPC string               `json:"jsonrpc"`
	ID      json.RawMessage      `json:"id"`
	Result  json.RawMessage      `json:"result"`
	Error   *message.ErrorObject `json:"error"`
}

// Server routes JSON-RPC methods to handlers.
type Server struct {
	mu          sync.RWMutex
	handlers    map[string]HandlerFunc
	calls       []Call
	contentType string
	reverse     bool
	logger      *zap.Logger

	httpServer   *http.Server
	listener     net.Listener
	wg           sync.WaitGroup // in-flight requests
	shutdown     atomic.Bool
	registry     registry.Registry
	service      string
	advertiseURL string
}

// NewServer creates a server with no methods.
func NewServer(logger *zap.Logger) *Server {
	return &Server{
		handlers:    make(map[string]HandlerFunc),
		contentType: "application/json",
		logger:      logging.OrNop(logger),
	}
}

// Handle registers fn for method, replacing any previous handler.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// SetContentType changes the content type of every reply.
func (s *Server) SetContentType(ct string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentType = ct
}

// ReverseBatches makes batch replies come back in reverse request order.
func (s *Server) ReverseBatches(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reverse = on
}

// Calls returns every envelope received so far, in arrival order.
func (s *Server) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.calls)
}

// Reset forgets the recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	defer s.wg.Done()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	ct, reverse := s.contentType, s.reverse
	s.mu.RUnlock()

	ctx := context.WithValue(r.Context(), headerKey{}, r.Header.Clone())
	var out any
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var envs []envelope
		if err := json.Unmarshal(trimmed, &envs); err != nil {
			out = failure(nil, CodeParseError, "Parse error")
			break
		}
		if len(envs) == 0 {
			out = failure(nil, CodeInvalidRequest, "Invalid Request")
			break
		}
		replies := s.handleBatch(ctx, envs, r.Header)
		if reverse {
			slices.Reverse(replies)
		}
		out = replies
	default:
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			out = failure(nil, CodeParseError, "Parse error")
			break
		}
		s.record(env, r.Header, false)
		out = s.handle(ctx, env)
	}

	w.Header().Set("Content-Type", ct)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Warn("write reply", zap.Error(err))
	}
}

func (s *Server) handleBatch(ctx context.Context, envs []envelope, header http.Header) []reply {
	for _, env := range envs {
		s.record(env, header, true)
	}
	replies := make([]reply, len(envs))
	var wg sync.WaitGroup
	for i := range envs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i] = s.handle(ctx, envs[i])
		}(i)
	}
	wg.Wait()
	return replies
}

func (s *Server) record(env envelope, header http.Header, batch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{
		ID:     env.ID,
		Method: env.Method,
		Params: env.Params,
		Header: header.Clone(),
		Batch:  batch,
	})
}

func (s *Server) handle(ctx context.Context, env envelope) reply {
	if env.JSONRPC != message.Version || env.Method == "" {
		return failure(env.ID, CodeInvalidRequest, "Invalid Request")
	}
	s.mu.RLock()
	fn, ok := s.handlers[env.Method]
	s.mu.RUnlock()
	if !ok {
		return failure(env.ID, CodeMethodNotFound, "Method not found")
	}

	result, errObj := fn(ctx, env.Params)
	if errObj != nil {
		return reply{JSONRPC: message.Version, ID: env.ID, Error: errObj}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("marshal result", zap.String("method", env.Method), zap.Error(err))
		return failure(env.ID, -32603, "Internal error")
	}
	return reply{JSONRPC: message.Version, ID: env.ID, Result: raw}
}

func failure(id json.RawMessage, code int, msg string) reply {
	return reply{JSONRPC: message.Version, ID: id, Error: &message.ErrorObject{Code: code, Message: msg}}
}

// Result answers every call with v.
func Result(v any) HandlerFunc {
	return func(context.Context, json.RawMessage) (any, *message.ErrorObject) {
		return v, nil
	}
}

// Fail answers every call with the given error. data may be nil.
func Fail(code int, msg string, data any) HandlerFunc {
	obj := &message.ErrorObject{Code: code, Message: msg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			panic(fmt.Sprintf("server: fail data: %v", err))
		}
		obj.Data = raw
	}
	return func(context.Context, json.RawMessage) (any, *message.ErrorObject) {
		return nil, obj
	}
}

// Serve listens on address and answers until Shutdown. When reg is not nil
// advertiseURL is registered under service so clients can discover it.
func (s *Server) Serve(address, advertiseURL, service string, reg registry.Registry) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	s.registry, s.service, s.advertiseURL = reg, service, advertiseURL
	s.mu.Unlock()

	if reg != nil {
		// TTL = 10 seconds, KeepAlive renews automatically
		ep := registry.Endpoint{URL: advertiseURL, Weight: 1}
		if err := reg.Register(context.Background(), service, ep, 10); err != nil {
			listener.Close()
			return err
		}
	}

	s.logger.Info("serving", zap.String("address", listener.Addr().String()))
	if err := s.httpServer.Serve(listener); err != nil && !s.shutdown.Load() {
		return err
	}
	return nil
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown deregisters the server, stops accepting requests and waits for
// in-flight ones up to timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.RLock()
	reg, httpServer := s.registry, s.httpServer
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if reg != nil {
		if err := reg.Deregister(ctx, s.service, s.advertiseURL); err != nil {
			s.logger.Warn("deregister", zap.Error(err))
		}
	}

	s.shutdown.Store(true)
	if httpServer == nil {
		return nil
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("timeout waiting for ongoing requests to finish: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}
