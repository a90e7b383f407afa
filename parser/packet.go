package parser

import "fmt"

var errInvalidPacketType = fmt.Errorf("parser: invalid packet type")

type PacketType byte

const (
	PacketTypeConnect PacketType = iota
	PacketTypeDisconnect
	PacketTypeEvent
	PacketTypeAck
	PacketTypeError
	PacketTypeBinaryEvent
	PacketTypeBinaryAck

	packetTypeMax = PacketTypeBinaryAck
)

func (p PacketType) String() string {
	switch p {
	case PacketTypeConnect:
		return "CONNECT"
	case PacketTypeDisconnect:
		return "DISCONNECT"
	case PacketTypeEvent:
		return "EVENT"
	case PacketTypeAck:
		return "ACK"
	case PacketTypeError:
		return "ERROR"
	case PacketTypeBinaryEvent:
		return "BINARY_EVENT"
	case PacketTypeBinaryAck:
		return "BINARY_ACK"
	}
	return fmt.Sprintf("PacketType(%d)", byte(p))
}

func (p PacketType) ToChar() byte {
	return byte(p) + '0'
}

func (p *PacketType) FromChar(b byte) error {
	if b < '0' || b > packetTypeMax.ToChar() {
		return errInvalidPacketType
	}
	*p = PacketType(b - '0')
	return nil
}

type PacketOptions struct {
	Compress bool
}

type Packet struct {
	Type      PacketType
	Namespace string
	ID        *uint64

	// For EVENT packets this is a []any with the event name as the first element.
	// For ACK packets this is a []any of the acknowledgement arguments.
	// ERROR packets carry whatever the peer sent.
	Data any

	// Query string sent with a CONNECT packet.
	Query string

	// Number of binary attachments. Set by the parser.
	Attachments int

	Options PacketOptions
}

func (p *Packet) IsBinary() bool {
	return p.Type == PacketTypeBinaryEvent || p.Type == PacketTypeBinaryAck
}

func (p *Packet) IsEvent() bool {
	return p.Type == PacketTypeEvent || p.Type == PacketTypeBinaryEvent
}

func (p *Packet) IsAck() bool {
	return p.Type == PacketTypeAck || p.Type == PacketTypeBinaryAck
}

// Args returns Data as a slice. Non-slice data is returned as a single element slice.
func (p *Packet) Args() []any {
	switch v := p.Data.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
