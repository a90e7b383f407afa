package jsonparser

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/karagenc/sio-client-go/parser"
)

type placeholder struct {
	Placeholder bool `json:"_placeholder"`
	Num         int  `json:"num"`
}

var (
	bytesType = reflect.TypeOf([]byte(nil))

	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// deconstructPacket replaces every binary value inside v with a placeholder
// and collects the binaries into buffers. v itself is left untouched;
// a JSON-ready copy is returned.
func deconstructPacket(v any, buffers *[][]byte) (any, error) {
	return deconstructValue(reflect.ValueOf(v), buffers)
}

func deconstructValue(rv reflect.Value, buffers *[][]byte) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	if rv.CanInterface() {
		switch v := rv.Interface().(type) {
		case parser.BinaryMarker:
			if v.SocketIOBinary() {
				return newPlaceholder(rv, buffers), nil
			}
		case parser.Valuer:
			return deconstructPacket(v.SocketIOValue(), buffers)
		}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return deconstructValue(rv.Elem(), buffers)

	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.Type() != bytesType && isOpaque(rv.Type()) {
				// json.RawMessage and friends.
				return rv.Interface(), nil
			}
			return newPlaceholder(rv, buffers), nil
		}
		return deconstructSlice(rv, buffers)

	case reflect.Array:
		return deconstructSlice(rv, buffers)

	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		if isOpaque(rv.Type()) {
			return rv.Interface(), nil
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := deconstructValue(iter.Value(), buffers)
			if err != nil {
				return nil, err
			}
			m[mapKey(iter.Key())] = v
		}
		return m, nil

	case reflect.Struct:
		if !rv.CanInterface() {
			return nil, nil
		}
		if isOpaque(rv.Type()) {
			return rv.Interface(), nil
		}
		return deconstructStruct(rv, buffers)

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, fmt.Errorf("parser/json: unsupported type: %s", rv.Type())
	}

	if rv.CanInterface() {
		return rv.Interface(), nil
	}
	return nil, nil
}

func deconstructSlice(rv reflect.Value, buffers *[][]byte) (any, error) {
	if isOpaque(rv.Type()) {
		return rv.Interface(), nil
	}
	s := make([]any, rv.Len())
	for i := range s {
		v, err := deconstructValue(rv.Index(i), buffers)
		if err != nil {
			return nil, err
		}
		s[i] = v
	}
	return s, nil
}

// Fields are walked with their JSON names, embedded structs are flattened.
func deconstructStruct(rv reflect.Value, buffers *[][]byte) (any, error) {
	m := make(map[string]any)
	s := structs.New(rv.Interface())
	s.TagName = "json"

	for _, field := range s.Fields() {
		if !field.IsExported() {
			continue
		}

		tag := field.Tag("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if strings.Contains(opts, "omitempty") && field.IsZero() {
			continue
		}

		v, err := deconstructValue(reflect.ValueOf(field.Value()), buffers)
		if err != nil {
			return nil, err
		}

		if field.IsEmbedded() && name == "" {
			if embedded, ok := v.(map[string]any); ok {
				for k, ev := range embedded {
					if _, exists := m[k]; !exists {
						m[k] = ev
					}
				}
				continue
			}
		}

		if name == "" {
			name = field.Name()
		}
		m[name] = v
	}
	return m, nil
}

func newPlaceholder(rv reflect.Value, buffers *[][]byte) placeholder {
	buf := rv.Convert(bytesType).Interface().([]byte)
	p := placeholder{
		Placeholder: true,
		Num:         len(*buffers),
	}
	*buffers = append(*buffers, buf)
	return p
}

// A value that serializes itself can't be inspected for binaries.
func isOpaque(rt reflect.Type) bool {
	return rt.Implements(jsonMarshalerType) || rt.Implements(textMarshalerType) ||
		reflect.PointerTo(rt).Implements(jsonMarshalerType)
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(k.Interface())
}

type reconstructor struct {
	packet    *parser.Packet
	buffers   [][]byte
	remaining int
}

func (r *reconstructor) addBuffer(buf []byte) (done bool) {
	r.buffers = append(r.buffers, buf)
	r.remaining--
	return r.remaining == 0
}

func (r *reconstructor) reconstruct() (*parser.Packet, error) {
	data, err := r.reconstructValue(r.packet.Data)
	if err != nil {
		return nil, err
	}
	r.packet.Data = data
	return r.packet, nil
}

func (r *reconstructor) reconstructValue(v any) (any, error) {
	switch v := v.(type) {
	case []any:
		for i, el := range v {
			el, err := r.reconstructValue(el)
			if err != nil {
				return nil, err
			}
			v[i] = el
		}
		return v, nil

	case map[string]any:
		if isPlaceholder, ok := v["_placeholder"].(bool); ok && isPlaceholder && len(v) == 2 {
			num, ok := placeholderNum(v["num"])
			if !ok || num < 0 || num >= len(r.buffers) {
				return nil, errInvalidPlaceholderNumValue
			}
			return r.buffers[num], nil
		}
		for k, el := range v {
			el, err := r.reconstructValue(el)
			if err != nil {
				return nil, err
			}
			v[k] = el
		}
		return v, nil
	}
	return v, nil
}

func placeholderNum(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
