package jsonparser

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/karagenc/sio-client-go/parser"
)

var (
	errNumBuffers             = fmt.Errorf("parser/json: numBuffers was expected to be equal to len(buffers)")
	errMaxAttachmentsExceeded = fmt.Errorf("parser/json: maximum number of attachments exceeded")
)

func (p *Parser) Encode(packet *parser.Packet) ([][]byte, error) {
	if packet.IsBinary() {
		return p.encodeBinary(packet)
	}

	buf, err := p.encodeString(packet, packet.Data, 0)
	if err != nil {
		return nil, err
	}
	return [][]byte{buf}, nil
}

func (p *Parser) encodeString(packet *parser.Packet, data any, attachments int) ([]byte, error) {
	var (
		buf  = bytes.Buffer{}
		grow int
	)

	grow += 1  // Packet type
	grow += 2  // Attachments
	grow += 20 // Namespace (Approximate length)
	grow += 20 // Ack ID (Max length)
	buf.Grow(grow)

	buf.WriteByte(packet.Type.ToChar())

	if packet.IsBinary() {
		buf.WriteString(strconv.Itoa(attachments))
		buf.WriteByte('-')
	}

	nsp := packet.Namespace
	if packet.Type == parser.PacketTypeConnect && packet.Query != "" {
		nsp += "?" + packet.Query
	}
	if nsp != "" && nsp != "/" {
		buf.WriteString(nsp)
		buf.WriteByte(',')
	}

	if packet.ID != nil {
		buf.WriteString(strconv.FormatUint(*packet.ID, 10))
	}

	if data != nil {
		b, err := p.json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("parser/json: %w", err)
		}
		buf.Write(b)
	}

	return buf.Bytes(), nil
}

func (p *Parser) encodeBinary(packet *parser.Packet) (buffers [][]byte, err error) {
	var attachments [][]byte
	data, err := deconstructPacket(packet.Data, &attachments)
	if err != nil {
		return nil, err
	}

	if p.maxAttachments > 0 && len(attachments) > p.maxAttachments {
		return nil, errMaxAttachmentsExceeded
	}
	packet.Attachments = len(attachments)

	s, err := p.encodeString(packet, data, len(attachments))
	if err != nil {
		return nil, err
	}

	buffers = make([][]byte, 0, 1+len(attachments))
	buffers = append(buffers, s)
	buffers = append(buffers, attachments...)
	if len(buffers) != 1+packet.Attachments {
		return nil, errNumBuffers
	}
	return
}
