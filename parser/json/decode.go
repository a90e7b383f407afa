package jsonparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/karagenc/sio-client-go/parser"
)

var (
	errInvalidPacket              = fmt.Errorf("parser/json: invalid packet")
	errInvalidEventData           = fmt.Errorf("parser/json: invalid event payload")
	errInvalidPlaceholderNumValue = fmt.Errorf("parser/json: invalid placeholder num value")
)

func (p *Parser) Add(data []byte, finish parser.Finish) error {
	// Every frame that follows a binary packet header is one of its attachments.
	if p.r != nil {
		if p.r.addBuffer(data) {
			r := p.r
			p.r = nil
			packet, err := r.reconstruct()
			if err != nil {
				return err
			}
			finish(packet)
		}
		return nil
	}

	packet, payload, err := p.decodeString(data)
	if err != nil {
		return err
	}

	if packet.IsBinary() && packet.Attachments > 0 {
		if p.maxAttachments > 0 && packet.Attachments > p.maxAttachments {
			return errMaxAttachmentsExceeded
		}
		p.r = &reconstructor{
			packet:    packet,
			remaining: packet.Attachments,
		}
		// Placeholders are resolved once every attachment has arrived.
		p.r.packet.Data = payload
		return nil
	}

	packet.Data = payload
	finish(packet)
	return nil
}

func (p *Parser) Reset() {
	p.r = nil
}

func (p *Parser) decodeString(data []byte) (packet *parser.Packet, payload any, err error) {
	if len(data) == 0 {
		return nil, nil, errInvalidPacket
	}

	packet = new(parser.Packet)
	err = packet.Type.FromChar(data[0])
	if err != nil {
		return nil, nil, fmt.Errorf("parser/json: %w", err)
	}

	s := string(data[1:])

	if packet.IsBinary() {
		i := strings.IndexByte(s, '-')
		if i < 0 {
			return nil, nil, errInvalidPacket
		}
		packet.Attachments, err = strconv.Atoi(s[:i])
		if err != nil || packet.Attachments < 0 {
			return nil, nil, errInvalidPacket
		}
		s = s[i+1:]
	}

	packet.Namespace = "/"
	if len(s) > 0 && s[0] == '/' {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			packet.Namespace = s
			s = ""
		} else {
			packet.Namespace = s[:i]
			s = s[i+1:]
		}
		if q := strings.IndexByte(packet.Namespace, '?'); q >= 0 {
			packet.Query = packet.Namespace[q+1:]
			packet.Namespace = packet.Namespace[:q]
		}
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.ParseUint(s[:i], 10, 64)
		if err != nil {
			return nil, nil, errInvalidPacket
		}
		packet.ID = &id
		s = s[i:]
	}

	if len(s) > 0 {
		err = p.json.Unmarshal([]byte(s), &payload)
		if err != nil {
			return nil, nil, fmt.Errorf("parser/json: %w", err)
		}
	}

	if !isPayloadValid(packet, payload) {
		return nil, nil, errInvalidEventData
	}
	return
}

func isPayloadValid(packet *parser.Packet, payload any) bool {
	switch packet.Type {
	case parser.PacketTypeEvent, parser.PacketTypeBinaryEvent:
		args, ok := payload.([]any)
		if !ok || len(args) == 0 {
			return false
		}
		_, ok = args[0].(string)
		return ok
	case parser.PacketTypeAck, parser.PacketTypeBinaryAck:
		if packet.ID == nil {
			return false
		}
		if payload == nil {
			return true
		}
		_, ok := payload.([]any)
		return ok
	}
	return true
}
