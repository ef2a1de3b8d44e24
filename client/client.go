// Package client implements the generic governance RPC client.
//
// Every call follows the same path:
//
//	Invoke → middleware chain → resolve endpoint → HTTP POST → protocol.Classify
//
// and ends in exactly one of: the decoded body, an *rpcerr.RPCError, or an
// *rpcerr.NetworkError.
package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nodara-sdk/codec"
	"nodara-sdk/message"
	"nodara-sdk/middleware"
	"nodara-sdk/protocol"
	"nodara-sdk/rpcerr"
	"nodara-sdk/transport"
)

// Client calls a governance node. It holds no mutable state and is safe for
// concurrent use; concurrent calls are independent and unordered.
type Client struct {
	endpoint  string
	resolver  Resolver
	transport *transport.ClientTransport
	handler   middleware.HandlerFunc // middleware(...(c.call))
	logger    *zap.Logger
}

type options struct {
	http        transport.Doer
	codec       codec.Codec
	logger      *zap.Logger
	middlewares []middleware.Middleware
	resolver    Resolver
}

type Option func(*options)

// WithHTTPClient sets the HTTP client used for every call (default http.DefaultClient).
func WithHTTPClient(doer transport.Doer) Option {
	return func(o *options) { o.http = doer }
}

func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMiddleware wraps every call. The first middleware runs outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithResolver picks the endpoint per call instead of using the static one.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// NewClient creates a client for endpoint. The endpoint is not validated
// here; an empty or malformed URL fails the first call with a NetworkError.
func NewClient(endpoint string, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.resolver == nil {
		o.resolver = StaticResolver(endpoint)
	}

	c := &Client{
		endpoint:  endpoint,
		resolver:  o.resolver,
		transport: transport.NewClientTransport(o.http, o.codec),
		logger:    o.logger,
	}
	c.handler = middleware.Chain(o.middlewares...)(c.call)
	return c
}

// Endpoint returns the endpoint the client was built with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Invoke calls method with positional params and returns the decoded body.
// Without retry middleware it sends exactly one request.
func (c *Client) Invoke(ctx context.Context, method string, params ...any) (*message.Response, error) {
	return c.handler(ctx, message.NewRequest(method, params...))
}

// CallResult invokes method and decodes the "result" member of the body (or
// the whole body when there is none) into result.
func (c *Client) CallResult(ctx context.Context, method string, result any, params ...any) error {
	resp, err := c.Invoke(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := resp.DecodeResult(result); err != nil {
		return rpcerr.Network(fmt.Errorf("%s: %w", method, err))
	}
	return nil
}

// call is the innermost handler: one HTTP exchange, classified.
func (c *Client) call(ctx context.Context, req *message.Request) (*message.Response, error) {
	endpoint, err := c.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, rpcerr.Network(fmt.Errorf("resolve endpoint: %w", err))
	}

	status, body, err := c.transport.Send(ctx, endpoint, req)
	if err != nil {
		return nil, rpcerr.Network(err)
	}

	outcome, err := protocol.Classify(status, body)
	if err != nil {
		return nil, rpcerr.Network(err)
	}
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return &message.Response{Status: outcome.Status, Body: outcome.Payload}, nil
}
