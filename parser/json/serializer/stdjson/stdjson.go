package stdjson

import (
	"encoding/json"

	"github.com/karagenc/sio-client-go/parser/json/serializer"
)

type stdjsonSerializer struct{}

func (s stdjsonSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s stdjsonSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func New() serializer.JSONSerializer {
	return stdjsonSerializer{}
}
