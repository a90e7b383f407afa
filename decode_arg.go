package sio

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodeArg converts an event argument into v, which must be a pointer.
// Event arguments arrive as the generic values produced by the parser
// (map[string]any, []any, float64, string, bool, []byte); struct fields
// are matched by their `json` tags.
func DecodeArg(arg any, v any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			binaryHook,
		),
	})
	if err != nil {
		return fmt.Errorf("sio: DecodeArg: %w", err)
	}
	err = decoder.Decode(arg)
	if err != nil {
		return fmt.Errorf("sio: DecodeArg: %w", err)
	}
	return nil
}

// DecodeArgs decodes args positionally into v.
// Extra arguments are ignored, missing ones are an error.
func DecodeArgs(args []any, v ...any) error {
	if len(args) < len(v) {
		return fmt.Errorf("sio: DecodeArgs: %d arguments were expected, got %d", len(v), len(args))
	}
	for i, target := range v {
		err := DecodeArg(args[i], target)
		if err != nil {
			return err
		}
	}
	return nil
}

var binaryType = reflect.TypeOf(Binary(nil))

func binaryHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to == binaryType && from == bytesType {
		return Binary(data.([]byte)), nil
	}
	return data, nil
}
