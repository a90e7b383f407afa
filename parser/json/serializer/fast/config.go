package fast

import (
	"github.com/bytedance/sonic"
	"github.com/goccy/go-json"
)

type Config struct {
	SonicConfig sonic.Config
	GoJSON      GoJSONConfig
}

type GoJSONConfig struct {
	EncodeOptions []json.EncodeOptionFunc
	DecodeOptions []json.DecodeOptionFunc
}

func DefaultConfig() Config {
	return Config{
		SonicConfig: sonic.Config{
			// Decoded event arguments are handed to listeners that may keep them around.
			CopyString: true,
			// Packets go over the wire as they are.
			CompactMarshaler: true,
			EscapeHTML:       false,
			// Key order of a map carries no meaning in an event payload.
			SortMapKeys: false,
		},
		GoJSON: GoJSONConfig{
			EncodeOptions: []json.EncodeOptionFunc{
				json.UnorderedMap(),
			},
		},
	}
}
