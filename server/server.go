// Package server implements a development governance node: an HTTP JSON-RPC
// server with reflection-based service registration, a middleware chain and
// graceful shutdown.
//
// Request pipeline:
//
//	POST body → parse {method, params} → middleware chain → businessHandler (reflect.Call) → {"result"|"error"}
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/match"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"nodara-sdk/message"
	"nodara-sdk/middleware"
	"nodara-sdk/protocol"
	"nodara-sdk/registry"
	"nodara-sdk/rpcerr"
)

// registrationTTL is the lease, in seconds, under which the node advertises itself.
const registrationTTL = 10

// Server serves registered services over HTTP. It implements http.Handler, so
// it can also be mounted on an httptest.Server.
type Server struct {
	serviceMap    map[string]*service // "nodara" -> *service
	middlewares   []middleware.Middleware
	handler       atomic.Pointer[middleware.HandlerFunc]
	httpServer    *http.Server
	shutdown      atomic.Bool
	mu            sync.Mutex        // Guards shutdown ordering and the registration fields below
	registry      registry.Registry // nil when not using discovery
	advertiseAddr string            // Endpoint URL registered for clients
	stopKeepAlive context.CancelFunc
	logger        *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	svr := &Server{
		serviceMap: make(map[string]*service),
		logger:     logger,
	}
	svr.httpServer = &http.Server{
		Handler:           svr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return svr
}

// Register exposes the RPC methods of rcvr as "<namespace>_<method>".
func (svr *Server) Register(namespace string, rcvr any) error {
	if !match.Match(namespace, "?*") || strings.Contains(namespace, "_") {
		return fmt.Errorf("rpc: invalid namespace %q", namespace)
	}
	svc, err := NewService(namespace, rcvr)
	if err != nil {
		return err
	}
	svr.serviceMap[namespace] = svc
	svr.handler.Store(nil)
	return nil
}

// Use registers a middleware. Middlewares run in the order they are added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
	svr.handler.Store(nil)
}

// chain returns the handler chain, building it on first use.
func (svr *Server) chain() middleware.HandlerFunc {
	if h := svr.handler.Load(); h != nil {
		return *h
	}
	h := middleware.Chain(svr.middlewares...)(svr.businessHandler)
	svr.handler.Store(&h)
	return h
}

// Serve listens on address and, when reg is non-nil, advertises advertiseAddr
// for every registered namespace. It blocks until Shutdown.
func (svr *Server) Serve(address string, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return svr.ServeListener(listener, advertiseAddr, reg)
}

// ServeListener serves on listener. When reg is non-nil the node is
// advertised before the first request is accepted.
func (svr *Server) ServeListener(listener net.Listener, advertiseAddr string, reg registry.Registry) error {
	svr.chain()

	if reg != nil {
		if err := svr.advertise(advertiseAddr, reg); err != nil {
			listener.Close()
			return err
		}
	}

	svr.logger.Info("governance node listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("advertise", advertiseAddr))

	err := svr.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) && svr.shutdown.Load() {
		return nil
	}
	return err
}

// advertise registers every namespace under advertiseAddr. It holds svr.mu
// so that a concurrent Shutdown either sees the registration and undoes it,
// or has already begun and registration is skipped.
func (svr *Server) advertise(advertiseAddr string, reg registry.Registry) error {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	for namespace := range svr.serviceMap {
		instance := registry.ServiceInstance{Endpoint: advertiseAddr, Weight: 1}
		if err := reg.Register(ctx, namespace, instance, registrationTTL); err != nil {
			cancel()
			return fmt.Errorf("register %s: %w", namespace, err)
		}
	}
	svr.registry = reg
	svr.advertiseAddr = advertiseAddr
	svr.stopKeepAlive = cancel
	return nil
}

// Shutdown deregisters the node first so clients stop routing to it, then
// stops accepting connections and waits up to timeout for in-flight calls.
func (svr *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svr.mu.Lock()
	svr.shutdown.Store(true)
	reg, advertise, stop := svr.registry, svr.advertiseAddr, svr.stopKeepAlive
	svr.registry, svr.stopKeepAlive = nil, nil
	svr.mu.Unlock()

	if reg != nil {
		for namespace := range svr.serviceMap {
			if err := reg.Deregister(ctx, namespace, advertise); err != nil {
				svr.logger.Warn("deregister failed", zap.String("namespace", namespace), zap.Error(err))
			}
		}
		stop()
	}

	if err := svr.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("timeout waiting for ongoing requests to finish: %w", err)
	}
	return nil
}

func (svr *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := protocol.ReadBody(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := parseRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := svr.chain()(r.Context(), req)
	if err != nil {
		var re *rpcerr.RPCError
		switch {
		case errors.As(err, &re):
			status := re.Status
			if status == 0 {
				status = http.StatusOK
			}
			writeError(w, status, re.Message)
		case rpcerr.IsNetwork(err):
			writeError(w, http.StatusGatewayTimeout, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// parseRequest reads {"method": string, "params": [...]}. Params are kept as
// raw JSON until the target method's argument types are known.
func parseRequest(body []byte) (*message.Request, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	method := gjson.GetBytes(body, "method")
	if method.Type != gjson.String || method.Str == "" {
		return nil, errors.New("missing method")
	}

	params := gjson.GetBytes(body, "params")
	if params.Exists() && params.Type != gjson.Null && !params.IsArray() {
		return nil, errors.New("params must be an array")
	}
	raw := params.Array()
	req := &message.Request{Method: method.Str, Params: make([]any, len(raw))}
	for i, p := range raw {
		req.Params[i] = json.RawMessage(p.Raw)
	}
	return req, nil
}

// businessHandler dispatches to the registered service method.
//
// Flow: split "<namespace>_<method>" → find service → find method →
// reflect.New(args) → positional params into args → reflect.Call → {"result": reply}
func (svr *Server) businessHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	notFound := &rpcerr.RPCError{Status: http.StatusNotFound, Message: "method not found: " + req.Method}
	if !match.Match(req.Method, "?*_?*") {
		return nil, notFound
	}
	namespace, methodName, _ := strings.Cut(req.Method, "_")

	svc, ok := svr.serviceMap[namespace]
	if !ok {
		return nil, notFound
	}
	method, ok := svc.method[methodName]
	if !ok {
		return nil, notFound
	}

	params := make([]json.RawMessage, len(req.Params))
	for i, p := range req.Params {
		raw, ok := p.(json.RawMessage)
		if !ok {
			b, err := json.Marshal(p)
			if err != nil {
				return nil, &rpcerr.RPCError{Status: http.StatusBadRequest, Message: err.Error()}
			}
			raw = b
		}
		params[i] = raw
	}

	argv := reflect.New(method.ArgType)
	replyv := reflect.New(method.ReplyType)
	if err := decodeParams(method, params, argv.Elem()); err != nil {
		return nil, &rpcerr.RPCError{Status: http.StatusBadRequest, Message: req.Method + ": " + err.Error()}
	}

	// Service failures are answers, reported in the body with status 200
	if err := svc.Call(method, argv, replyv); err != nil {
		return nil, &rpcerr.RPCError{Status: http.StatusOK, Message: err.Error()}
	}

	reply, err := json.Marshal(replyv.Interface())
	if err != nil {
		return nil, fmt.Errorf("marshal %s reply: %w", req.Method, err)
	}
	body, err := sjson.SetRawBytes([]byte(`{}`), "result", reply)
	if err != nil {
		return nil, err
	}
	return &message.Response{Status: http.StatusOK, Body: body}, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	body, err := sjson.SetBytes([]byte(`{}`), "error", msg)
	if err != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
