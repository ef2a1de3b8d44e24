// Package transport implements the client-side HTTP transport.
//
// Every call is one POST to the node endpoint:
//
//	POST <endpoint>
//	Content-Type: application/json
//
//	{"method": "...", "params": [...]}
//
// The transport only moves bytes. It does not interpret status codes or
// bodies; that is the protocol package's job.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"nodara-sdk/codec"
	"nodara-sdk/message"
	"nodara-sdk/protocol"
)

// Doer is satisfied by *http.Client and by test doubles.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientTransport sends requests over HTTP. It is safe for concurrent use
// as long as the underlying Doer is (http.Client is).
type ClientTransport struct {
	http  Doer
	codec codec.Codec
}

// NewClientTransport creates a transport. A nil Doer means http.DefaultClient,
// a nil codec means codec.Default().
func NewClientTransport(doer Doer, cdc codec.Codec) *ClientTransport {
	if doer == nil {
		doer = http.DefaultClient
	}
	if cdc == nil {
		cdc = codec.Default()
	}
	return &ClientTransport{http: doer, codec: cdc}
}

// Send encodes req, POSTs it to endpoint and returns the status and raw body.
// Any returned error means no complete exchange took place.
func (t *ClientTransport) Send(ctx context.Context, endpoint string, req *message.Request) (int, []byte, error) {
	// Step 1: Serialize the envelope
	payload, err := t.codec.Encode(req)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	// Step 2: Build the HTTP request; a malformed endpoint surfaces here
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", t.codec.ContentType())
	httpReq.Header.Set("Accept", t.codec.ContentType())

	// Step 3: Round trip
	resp, err := t.http.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := protocol.ReadBody(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
