package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec marshals plain Go structs with encoding/json. It replaces
// Connect's protobuf JSON codec, which only handles generated messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSON configures a Connect handler or client to speak the JSON codec.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
