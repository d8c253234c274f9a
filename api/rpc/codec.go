// Package rpc holds the gRPC plumbing shared by every ProdMatic service: the JSON wire codec,
// a generic unary method descriptor and a registry that lets the HTTP gateway dispatch into
// the same handlers the gRPC server uses.
package rpc

import (
	"encoding/json"
	"sync"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype used by every ProdMatic service.
const CodecName = "json"

var registerCodecOnce sync.Once

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return CodecName
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// EnsureJSONCodec registers the JSON codec with grpc. Safe to call many times.
func EnsureJSONCodec() {
	registerCodecOnce.Do(func() {
		encoding.RegisterCodec(jsonCodec{})
	})
}

func init() {
	EnsureJSONCodec()
}

// Codec returns the JSON codec, for grpc.ForceServerCodec and grpc.ForceCodec.
func Codec() encoding.Codec {
	return jsonCodec{}
}
