package werr

import (
	"context"
	"errors"
	"io"
	"net"
)

// TransportErrc is a transport-layer error code.
type TransportErrc int

const (
	TransportErrcSuccess TransportErrc = iota
	TransportErrcAborted
	TransportErrcDisconnected
	TransportErrcFailed
	TransportErrcExhausted
	TransportErrcTooLong
	TransportErrcInboundTooLong
	TransportErrcOutboundTooLong
	TransportErrcBadHandshake
	TransportErrcBadCommand
	TransportErrcBadSerializer
	TransportErrcBadLengthLimit
	TransportErrcBadFeature
	TransportErrcSaturated
	TransportErrcHeartbeatTimeout
	TransportErrcHandshakeTimeout
	TransportErrcHeaderTimeout
	TransportErrcBodyTimeout
	TransportErrcReadTimeout
	TransportErrcWriteTimeout
	TransportErrcIdleTimeout
	TransportErrcLingerTimeout
	TransportErrcEnded
	TransportErrcExpectedText
	TransportErrcExpectedBinary
	TransportErrcShedded
	TransportErrcReservedBitsUsed
	TransportErrcUnsupportedFormat
	TransportErrcUnacceptableLength
	TransportErrcMaxConnections
)

var transportMessages = map[TransportErrc]string{
	TransportErrcSuccess:          "transport operation successful",
	TransportErrcAborted:          "transport operation aborted",
	TransportErrcDisconnected:     "transport disconnected by other peer",
	TransportErrcFailed:           "transport operation failed",
	TransportErrcExhausted:        "all transports failed during connection",
	TransportErrcTooLong:          "incoming message exceeds transport's length limit",
	TransportErrcInboundTooLong:   "inbound message exceeds the negotiated receive limit",
	TransportErrcOutboundTooLong:  "outbound message exceeds the peer's receive limit",
	TransportErrcBadHandshake:     "received invalid handshake",
	TransportErrcBadCommand:       "received invalid transport command",
	TransportErrcBadSerializer:    "unsupported serialization format",
	TransportErrcBadLengthLimit:   "unacceptable maximum message length",
	TransportErrcBadFeature:       "unsupported transport feature",
	TransportErrcSaturated:        "connection limit reached",
	TransportErrcHeartbeatTimeout: "heartbeat pong not received in time",
	TransportErrcHandshakeTimeout: "handshake did not complete in time",
	TransportErrcHeaderTimeout:    "message header not received in time",
	TransportErrcBodyTimeout:      "message body not received in time",
	TransportErrcReadTimeout:      "read did not complete in time",
	TransportErrcWriteTimeout:     "write did not complete in time",
	TransportErrcIdleTimeout:      "connection idle for too long",
	TransportErrcLingerTimeout:    "graceful shutdown did not complete before the linger deadline",
	TransportErrcEnded:            "transport connection ended",
	TransportErrcExpectedText:     "expected a text frame but received binary",
	TransportErrcExpectedBinary:   "expected a binary frame but received text",
	TransportErrcShedded:            "server is shedding new connections",
	TransportErrcReservedBitsUsed:   "reserved handshake bits were set",
	TransportErrcUnsupportedFormat:  "unsupported serialization format requested in handshake",
	TransportErrcUnacceptableLength: "unacceptable maximum message length requested in handshake",
	TransportErrcMaxConnections:     "maximum connection count reached",
}

func (e TransportErrc) Error() string {
	if m, ok := transportMessages[e]; ok {
		return m
	}
	return "transport: unrecognized error code"
}

// Is reports whether target is the same TransportErrc; codes are
// compared by value only. The mapping of raw net/io errors onto these
// codes (connection reset and EOF to disconnected, cancellation to
// aborted, anything else to failed) is done by [ClassifyNetError], not
// by Is.
func (e TransportErrc) Is(target error) bool {
	t, ok := target.(TransportErrc)
	if ok {
		return e == t
	}
	return false
}

// ClassifyNetError maps a raw net/io error into the canonical
// TransportErrc condition it subsumes, per spec.md §4.A.
func ClassifyNetError(err error) TransportErrc {
	if err == nil {
		return TransportErrcSuccess
	}
	switch {
	case errors.Is(err, io.EOF), isConnReset(err):
		return TransportErrcDisconnected
	case errors.Is(err, context.Canceled):
		return TransportErrcAborted
	default:
		return TransportErrcFailed
	}
}

func isConnReset(err error) bool {
	var ne *net.OpError
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
