// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wsocket adapts a gorilla/websocket connection to the
// [transport.Stream] interface, per SPEC_FULL.md §4.G: subprotocol
// negotiation, text/binary framing by codec, and close-code mapping.
package wsocket

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wampgo/wampcore/transport"
	"github.com/wampgo/wampcore/werr"
	"github.com/wampgo/wampcore/wireframe"
)

// Subprotocols lists the WAMP WebSocket subprotocols in preference
// order, per spec.md §4.G.
var Subprotocols = []string{"wamp.2.json", "wamp.2.msgpack", "wamp.2.cbor"}

// CodecForSubprotocol maps a negotiated subprotocol to its codec id, or
// false if subprotocol is not one WAMP defines.
func CodecForSubprotocol(subprotocol string) (wireframe.CodecID, bool) {
	switch subprotocol {
	case "wamp.2.json":
		return wireframe.CodecIDJSON, true
	case "wamp.2.msgpack":
		return wireframe.CodecIDMsgpack, true
	case "wamp.2.cbor":
		return wireframe.CodecIDCBOR, true
	default:
		return 0, false
	}
}

// SubprotocolForCodec is the inverse of [CodecForSubprotocol].
func SubprotocolForCodec(codec wireframe.CodecID) (string, bool) {
	switch codec {
	case wireframe.CodecIDJSON:
		return "wamp.2.json", true
	case wireframe.CodecIDMsgpack:
		return "wamp.2.msgpack", true
	case wireframe.CodecIDCBOR:
		return "wamp.2.cbor", true
	default:
		return "", false
	}
}

// Conn adapts a *websocket.Conn to [transport.Stream]. JSON traffic
// uses text frames; msgpack and CBOR use binary frames, per spec.md
// §4.G.
type Conn struct {
	conn        *websocket.Conn
	codec       wireframe.CodecID
	messageType int
	open        bool
}

// New wraps conn, framing outbound writes according to codec. gorilla's
// default ping handler already answers an inbound ping with a pong
// automatically, so New only needs to arrange for inbound pongs (the
// replies to our own pings) to reach [transport.Queue] via
// [Conn.ObservePongs].
func New(conn *websocket.Conn, codec wireframe.CodecID) *Conn {
	messageType := websocket.BinaryMessage
	if codec == wireframe.CodecIDJSON {
		messageType = websocket.TextMessage
	}
	return &Conn{conn: conn, codec: codec, messageType: messageType, open: true}
}

// ObservePongs implements [transport.PongObserver]. gorilla/websocket
// handles pong control frames internally inside ReadMessage and never
// surfaces them as a message, so the only way to observe one is this
// callback, invoked synchronously on whatever goroutine is blocked in
// ReadMessage when the pong arrives — which for a [transport.Queue] is
// always the goroutine running ReadFrame.
func (c *Conn) ObservePongs(onPong func(payload []byte)) {
	c.conn.SetPongHandler(func(payload string) error {
		onPong([]byte(payload))
		return nil
	})
}

// IsOpen implements [transport.Stream].
func (c *Conn) IsOpen() bool { return c.open }

// WriteFrame implements [transport.Stream]. WebSocket framing carries
// no separate ping/pong frame kind of its own (gorilla/websocket
// exposes those as control frames); a [wireframe.FrameKindPing]/
// [wireframe.FrameKindPong] payload is sent as a native WebSocket
// ping/pong control frame instead of a data frame.
func (c *Conn) WriteFrame(kind wireframe.FrameKind, payload []byte) error {
	switch kind {
	case wireframe.FrameKindPing:
		return c.conn.WriteMessage(websocket.PingMessage, payload)
	case wireframe.FrameKindPong:
		return c.conn.WriteMessage(websocket.PongMessage, payload)
	default:
		return c.conn.WriteMessage(c.messageType, payload)
	}
}

// ReadFrame implements [transport.Stream], rejecting a data frame whose
// WebSocket message type mismatches the negotiated codec's expected
// framing, per spec.md §4.G's bad_payload row. Ping and pong are native
// WebSocket control frames handled inside ReadMessage itself (see
// [Conn.ObservePongs]) and never reach this loop as a messageType.
func (c *Conn) ReadFrame() (wireframe.FrameKind, []byte, error) {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return 0, nil, c.translateCloseError(err)
		}
		switch messageType {
		case websocket.PingMessage, websocket.PongMessage:
			continue
		case c.messageType:
			return wireframe.FrameKindWAMP, payload, nil
		default:
			if c.messageType == websocket.TextMessage {
				return 0, nil, werr.TransportErrcExpectedText
			}
			return 0, nil, werr.TransportErrcExpectedBinary
		}
	}
}

// Shutdown implements [transport.Stream], sending a WebSocket close
// frame carrying reason's close code, per spec.md §4.G's "outbound
// shutdown translates the local reason back to a close code using the
// inverse table."
func (c *Conn) Shutdown(reason error) error {
	code, text := closeCodeForReason(reason)
	return c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(5*time.Second))
}

// Close implements [transport.Stream].
func (c *Conn) Close() error {
	c.open = false
	return c.conn.Close()
}

var _ transport.Stream = (*Conn)(nil)

// translateCloseError maps an inbound WebSocket close code to a
// TransportErrc, per spec.md §4.G's close-code table. The too_big row
// intentionally maps to outboundTooLong rather than inboundTooLong: the
// reference implementation emits outboundTooLong for a received
// too_big close regardless of which side exceeded the limit, and that
// behavior is preserved here rather than "corrected."
func (c *Conn) translateCloseError(err error) error {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure):
		return werr.TransportErrcSuccess
	case websocket.IsCloseError(err, websocket.CloseGoingAway):
		return werr.TransportErrcEnded
	case websocket.IsCloseError(err, websocket.CloseMessageTooBig):
		return werr.TransportErrcOutboundTooLong
	case websocket.IsCloseError(err, websocket.CloseUnsupportedData):
		if c.messageType == websocket.TextMessage {
			return werr.TransportErrcExpectedText
		}
		return werr.TransportErrcExpectedBinary
	case websocket.IsCloseError(err, websocket.CloseTryAgainLater):
		return werr.TransportErrcShedded
	}
	if _, ok := err.(*websocket.CloseError); ok {
		return werr.TransportErrcDisconnected
	}
	return err
}

func closeCodeForReason(reason error) (int, string) {
	switch reason {
	case nil, werr.TransportErrcSuccess:
		return websocket.CloseNormalClosure, ""
	case werr.TransportErrcEnded:
		return websocket.CloseGoingAway, ""
	case werr.TransportErrcOutboundTooLong, werr.TransportErrcInboundTooLong:
		return websocket.CloseMessageTooBig, ""
	case werr.TransportErrcExpectedText, werr.TransportErrcExpectedBinary:
		return websocket.CloseUnsupportedData, ""
	case werr.TransportErrcShedded:
		return websocket.CloseTryAgainLater, ""
	default:
		return websocket.CloseNormalClosure, fmt.Sprintf("%v", reason)
	}
}
