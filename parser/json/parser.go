package jsonparser

import (
	"github.com/karagenc/sio-client-go/parser"
	"github.com/karagenc/sio-client-go/parser/json/serializer"
	"github.com/karagenc/sio-client-go/parser/json/serializer/stdjson"
)

// maxAttachments is the maximum number of the binary attachments to parse/send.
// If maxAttachments is 0, there will be no limit set for binary attachments.
//
// json can be nil, encoding/json is used then.
func NewCreator(maxAttachments int, json serializer.JSONSerializer) parser.Creator {
	if json == nil {
		json = stdjson.New()
	}
	return func() parser.Parser {
		return &Parser{
			json:           json,
			maxAttachments: maxAttachments,
		}
	}
}

type Parser struct {
	json           serializer.JSONSerializer
	r              *reconstructor
	maxAttachments int
}

var _ parser.Parser = (*Parser)(nil)
