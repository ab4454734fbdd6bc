package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec serializes plain Go messages as JSON. It registers under the name
// "json" so both the Connect protocol and curl speak the same body format.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithCodec is the option every taskboard handler and client must carry.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
