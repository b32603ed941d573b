package cq

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

// Codec is the narrow request/response (de)serialization seam spec.md §1
// puts out of scope ("assumed to expose deserialize(bytes)->message and
// serialize(message)->bytes"). Schema-generated stubs would normally supply
// a protobuf-backed implementation the way mschristensen-risp's risppb types
// do over grpc-go; this repository ships a gob-backed default so the bundled
// demo services and tests are runnable without a codegen step.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// GobCodec is the default Codec. v must be a pointer for Unmarshal.
type GobCodec struct{}

// Name returns the codec's identifying name. It is not sent on the wire:
// request preambles carry no codec name.
func (GobCodec) Name() string { return "gob" }

// Marshal gob-encodes v.
func (GobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "gob encode")
	}
	return buf.Bytes(), nil
}

// Unmarshal gob-decodes data into v, which must be a pointer.
func (GobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return errors.Wrap(err, "gob decode")
	}
	return nil
}

// DefaultCodec is used by Server and Client when no Codec option is
// supplied.
var DefaultCodec Codec = GobCodec{}
