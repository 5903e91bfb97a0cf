package udiscoverypb

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype of the udiscovery API.
const CodecName = "json"

// Codec marshals message structs as JSON. Protobuf messages (health checks,
// reflection) keep their binary encoding.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

func (Codec) Name() string { return CodecName }
