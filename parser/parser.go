package parser

// Socket.IO protocol revision implemented by this package's packet types.
const ProtocolVersion = 4

type (
	Creator func() Parser
	// Called once per fully reassembled packet.
	Finish func(packet *Packet)
)

type Parser interface {
	// Encode returns the frames of a packet. The first buffer is the
	// text frame, the rest are binary attachments.
	Encode(packet *Packet) (buffers [][]byte, err error)

	// Add feeds a received frame. Binary attachments are accumulated
	// until the packet is complete, then finish is called.
	Add(data []byte, finish Finish) error

	// Reset discards partially reassembled packets.
	Reset()
}
