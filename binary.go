package sio

import (
	"reflect"

	"github.com/karagenc/sio-client-go/parser"
)

// Binary marks a byte slice as a binary attachment.
// Plain []byte values are sent as attachments too.
type Binary = parser.Binary

// Valuer lets a value decide how it is sent.
// Its result is inspected and encoded instead of the value itself.
type Valuer = parser.Valuer

// hasBinary reports whether v contains a binary value anywhere inside it.
func hasBinary(v any) bool {
	return hasBinaryValue(reflect.ValueOf(v))
}

func hasBinaryValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return false
	}

	if rv.CanInterface() {
		switch v := rv.Interface().(type) {
		case parser.BinaryMarker:
			if v.SocketIOBinary() {
				return true
			}
		case parser.Valuer:
			return hasBinary(v.SocketIOValue())
		}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return hasBinaryValue(rv.Elem())

	case reflect.Slice:
		if rv.IsNil() {
			return false
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Type() == bytesType || !isOpaque(rv.Type())
		}
		return hasBinaryElems(rv)

	case reflect.Array:
		return hasBinaryElems(rv)

	case reflect.Map:
		if rv.IsNil() || isOpaque(rv.Type()) {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if hasBinaryValue(iter.Value()) {
				return true
			}
		}

	case reflect.Struct:
		if isOpaque(rv.Type()) {
			return false
		}
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() || field.Tag.Get("json") == "-" {
				continue
			}
			if hasBinaryValue(rv.Field(i)) {
				return true
			}
		}
	}
	return false
}

func hasBinaryElems(rv reflect.Value) bool {
	if isOpaque(rv.Type()) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if hasBinaryValue(rv.Index(i)) {
			return true
		}
	}
	return false
}

var (
	bytesType = reflect.TypeOf([]byte(nil))

	jsonMarshalerType = reflect.TypeOf((*interface{ MarshalJSON() ([]byte, error) })(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*interface{ MarshalText() ([]byte, error) })(nil)).Elem()
)

// A value that serializes itself is sent as it is.
func isOpaque(rt reflect.Type) bool {
	return rt.Implements(jsonMarshalerType) || rt.Implements(textMarshalerType) ||
		reflect.PointerTo(rt).Implements(jsonMarshalerType)
}
