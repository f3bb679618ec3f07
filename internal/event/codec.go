package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes one event or control message into its framed wire form.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
}

// JSONCodec produces newline-delimited JSON, the default wire format.
type JSONCodec struct{}

// Name returns the codec identifier.
func (JSONCodec) Name() string { return "ndjson" }

// Encode marshals v and appends the line delimiter.
func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode ndjson: %w", err)
	}
	return append(data, '\n'), nil
}

// MsgpackCodec produces a compact binary stream for consumers that negotiate
// it out of band. msgpack values are self-delimiting, so no framing is added.
type MsgpackCodec struct{}

// Name returns the codec identifier.
func (MsgpackCodec) Name() string { return "msgpack" }

// Encode marshals v as a single msgpack value.
func (MsgpackCodec) Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode msgpack: %w", err)
	}
	return data, nil
}

// ParseEncoding converts a configuration string to a Codec.
func ParseEncoding(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "ndjson", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("invalid encoding: %q (expected: ndjson|msgpack)", s)
	}
}
