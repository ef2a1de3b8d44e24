// Package message defines the request and response envelopes exchanged with a
// governance node.
//
// A Request is serialized by the codec layer and POSTed as the HTTP body. A
// Response holds the decoded JSON body of a completed, successful exchange.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Request carries the data for a single RPC call.
//
//	{"method": "nodara_voteProposal", "params": ["prop-1", true]}
type Request struct {
	Method string `json:"method"`
	Params []any  `json:"params"` // Positional arguments, order-significant. Never nil on the wire.
}

// NewRequest builds a request, normalizing a nil params list to an empty array.
func NewRequest(method string, params ...any) *Request {
	if params == nil {
		params = []any{}
	}
	return &Request{Method: method, Params: params}
}

// Response is the decoded body of a successful call.
type Response struct {
	Status int             // HTTP status code of the exchange
	Body   json.RawMessage // Whole response body, valid JSON
}

// Decode unmarshals the whole body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Result returns the raw "result" member, or the whole body when the node
// did not wrap its payload.
func (r *Response) Result() json.RawMessage {
	res := gjson.GetBytes(r.Body, "result")
	if !res.Exists() {
		return r.Body
	}
	return json.RawMessage(res.Raw)
}

// DecodeResult unmarshals Result() into v.
func (r *Response) DecodeResult(v any) error {
	if err := json.Unmarshal(r.Result(), v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (r *Response) String() string {
	return string(r.Body)
}
