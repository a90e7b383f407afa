package parser

import "errors"

// Binary marks a byte slice as a binary attachment.
// Plain []byte values are treated as attachments too.
type Binary []byte

func (b Binary) SocketIOBinary() bool { return true }

func (b Binary) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *Binary) UnmarshalJSON(data []byte) error {
	if b == nil {
		return errors.New("parser: Binary: UnmarshalJSON on nil pointer")
	}
	*b = append((*b)[0:0], data...)
	return nil
}

type BinaryMarker interface {
	SocketIOBinary() bool
}

// Valuer lets a value decide how it is serialized.
// Its result is inspected (and encoded) instead of the value itself.
type Valuer interface {
	SocketIOValue() any
}
