// Package stormcodec provides alternative Storm serialization formats
// backed by ugorji/go handles.
package stormcodec

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// CBOR encodes to and decodes from CBOR (RFC 7049).
var CBOR = handleCodec{name: "cbor", handle: &codec.CborHandle{}}

// Binc encodes to and decodes from Binc.
var Binc = handleCodec{name: "binc", handle: &codec.BincHandle{}}

type handleCodec struct {
	name   string
	handle codec.Handle
}

func (c handleCodec) Marshal(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	if err := codec.NewEncoder(&b, c.handle).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c handleCodec) Unmarshal(b []byte, v interface{}) error {
	return codec.NewDecoder(bytes.NewReader(b), c.handle).Decode(v)
}

func (c handleCodec) Name() string {
	return c.name
}
