package sio

import "github.com/karagenc/sio-client-go/transport"

type Reason = string

const (
	ReasonIOServerDisconnect Reason = "io server disconnect"
	ReasonIOClientDisconnect Reason = "io client disconnect"
)

const (
	ReasonForcedClose    Reason = transport.ReasonForcedClose
	ReasonTransportClose Reason = transport.ReasonTransportClose
	ReasonTransportError Reason = transport.ReasonTransportError
	ReasonPingTimeout    Reason = transport.ReasonPingTimeout
)
