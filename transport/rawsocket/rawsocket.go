// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package rawsocket adapts any net.Conn (TCP or net.UnixConn) to the
// [transport.Stream] interface, using wireframe's handshake and header
// framing, per SPEC_FULL.md §4.F.
package rawsocket

import (
	"io"
	"net"

	"github.com/wampgo/wampcore/transport"
	"github.com/wampgo/wampcore/werr"
	"github.com/wampgo/wampcore/wireframe"
)

// Conn adapts conn to [transport.Stream], framing every write and read
// with a wireframe.Header and enforcing maxLength on inbound frames.
type Conn struct {
	conn      net.Conn
	codecID   wireframe.CodecID
	maxLength uint32
	open      bool
}

// DialClient performs the client side of the raw-socket handshake over
// conn, requesting codec and the largest maxLen this client will
// accept, and returns a ready Stream, or an error if the server
// rejected the handshake or spoke back an unsupported codec.
func DialClient(conn net.Conn, codec wireframe.CodecID, maxLen wireframe.MaxLengthCode) (*Conn, error) {
	outbound := wireframe.NewHandshake(codec, maxLen)
	if err := writeHandshake(conn, outbound); err != nil {
		return nil, err
	}

	inbound, err := readHandshake(conn)
	if err != nil {
		return nil, err
	}

	codecID, maxLenCode, err := wireframe.ValidateAsClient(inbound, codec)
	if err != nil {
		return nil, err
	}

	return &Conn{conn: conn, codecID: codecID, maxLength: maxLenCode.ByteLength(), open: true}, nil
}

// AcceptServer performs the server side of the raw-socket handshake
// over conn: it reads the client's request, checks the codec against
// supportsCodec, and replies with the smaller of the client's
// requested maxLen and serverMaxLen.
func AcceptServer(conn net.Conn, supportsCodec func(wireframe.CodecID) bool, serverMaxLen wireframe.MaxLengthCode) (*Conn, error) {
	inbound, err := readHandshake(conn)
	if err != nil {
		return nil, err
	}

	codecID, clientMaxLen, err := wireframe.ValidateAsServer(inbound, supportsCodec)
	if err != nil {
		if errc, ok := err.(werr.TransportErrc); ok {
			_ = writeHandshake(conn, wireframe.NewErrorHandshake(errc))
		}
		return nil, err
	}

	responseLen := serverMaxLen
	if clientMaxLen < responseLen {
		responseLen = clientMaxLen
	}
	response := wireframe.NewHandshake(codecID, responseLen)
	if err := writeHandshake(conn, response); err != nil {
		return nil, err
	}

	return &Conn{conn: conn, codecID: codecID, maxLength: responseLen.ByteLength(), open: true}, nil
}

// CodecID reports the codec negotiated during the handshake.
func (c *Conn) CodecID() wireframe.CodecID { return c.codecID }

func writeHandshake(conn net.Conn, h wireframe.Handshake) error {
	b := h.Bytes()
	_, err := conn.Write(b[:])
	return err
}

func readHandshake(conn net.Conn) (wireframe.Handshake, error) {
	var buf [4]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return wireframe.Handshake{}, err
	}
	return wireframe.HandshakeFromBigEndian(buf[:]), nil
}

// IsOpen implements [transport.Stream].
func (c *Conn) IsOpen() bool { return c.open }

// WriteFrame implements [transport.Stream], writing a wireframe.Header
// followed by payload.
func (c *Conn) WriteFrame(kind wireframe.FrameKind, payload []byte) error {
	if uint32(len(payload)) > c.maxLength {
		return werr.TransportErrcOutboundTooLong
	}
	header := wireframe.NewHeader(kind, uint32(len(payload)))
	b := header.Bytes()
	if _, err := c.conn.Write(b[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := c.conn.Write(payload)
	return err
}

// ReadFrame implements [transport.Stream], reading one header-delimited
// frame and rejecting it with TransportErrcInboundTooLong if it exceeds
// the negotiated maxLength. The frame's header.Kind() is returned
// as-is, so a ping or pong control frame reaches [transport.Queue]
// tagged for heartbeat handling instead of being mistaken for a WAMP
// payload.
func (c *Conn) ReadFrame() (wireframe.FrameKind, []byte, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.conn, buf[:]); err != nil {
		return 0, nil, err
	}
	header := wireframe.HeaderFromBigEndian(buf[:])
	length := header.Length()
	if length > c.maxLength {
		return 0, nil, werr.TransportErrcInboundTooLong
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return 0, nil, err
		}
	}
	return header.Kind(), payload, nil
}

// Shutdown implements [transport.Stream] via a half-close when conn
// supports it (net.TCPConn/net.UnixConn), else a full Close.
func (c *Conn) Shutdown(reason error) error {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := c.conn.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return c.Close()
}

// Close implements [transport.Stream].
func (c *Conn) Close() error {
	c.open = false
	return c.conn.Close()
}

var _ transport.Stream = (*Conn)(nil)
