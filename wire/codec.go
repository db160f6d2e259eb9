package wire

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package registers. A Listen
// call is opened with grpc.CallContentSubtype(codecName) (see service.go),
// which makes both ends pick this codec instead of grpc-go's default
// proto codec — there are no proto.Message types here, by design (see the
// package doc comment).
const codecName = "tracedeck"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec marshals wire messages with encoding/gob. gob is a reasonable
// stand-in for the "RPC code-generation layer" spec.md places out of scope:
// it needs no schema compiler, and Go's own stdlib is the most idiomatic
// choice for a wire format this module owns end to end.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
