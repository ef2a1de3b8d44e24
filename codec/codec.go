// Package codec serializes request and response bodies for the wire.
package codec

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	ContentType() string // Sent as the Content-Type header of every request
}

// Default returns the codec governance nodes speak.
func Default() Codec {
	return &JSONCodec{}
}
