package transport

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

// RegisterWireType registers a concrete type that will travel inside a
// Frame's payload so gob can round-trip it without the caller pre-wiring
// every application struct by hand. orbit calls this for every concrete
// parameter and return shape of a remotable interface as it is
// registered. The TCP transport relies on gob for the outer envelope;
// the mock transport hands frames over as Go values and never encodes
// them.
func RegisterWireType(v interface{}) {
	gob.Register(v)
}

// Encode serializes a frame with gob, the same wire format the reference
// peer used for its own request/response structs.
func Encode(frame Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&frame); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a frame previously produced by Encode.
func Decode(data []byte) (Frame, error) {
	var frame Frame
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&frame); err != nil {
		return nil, errors.WithStack(err)
	}
	return frame, nil
}
