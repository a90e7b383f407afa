package websocket

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Engine.IO v3 packet types.
const (
	packetOpen    byte = '0'
	packetClose   byte = '1'
	packetPing    byte = '2'
	packetPong    byte = '3'
	packetMessage byte = '4'
	packetUpgrade byte = '5'
	packetNoop    byte = '6'
)

// Binary frames carry the packet type as a raw byte.
const binaryMessage byte = 4

type handshakeResponse struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
}

func (hr *handshakeResponse) pingInterval() time.Duration {
	return time.Duration(hr.PingInterval) * time.Millisecond
}

func (hr *handshakeResponse) pingTimeout() time.Duration {
	return time.Duration(hr.PingTimeout) * time.Millisecond
}

func parseHandshakeResponse(data []byte) (*handshakeResponse, error) {
	if len(data) == 0 || data[0] != packetOpen {
		return nil, fmt.Errorf("websocket: packet with a type of OPEN was expected")
	}

	hr := new(handshakeResponse)
	err := json.Unmarshal(data[1:], hr)
	if err != nil {
		return nil, fmt.Errorf("websocket: invalid handshake response: %w", err)
	}
	if hr.SID == "" {
		return nil, fmt.Errorf("websocket: handshake response has no sid")
	}
	return hr, nil
}

func encodeMessage(data []byte, isBinary bool) []byte {
	buf := make([]byte, 0, len(data)+1)
	if isBinary {
		buf = append(buf, binaryMessage)
	} else {
		buf = append(buf, packetMessage)
	}
	return append(buf, data...)
}
