// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wireframe implements the raw-socket wire primitives from
// spec.md §3/§4.B/§6: the 4-byte raw-socket message header and the
// 4-byte handshake word, as pure value types over a uint32.
package wireframe

import "encoding/binary"

// FrameKind is the kind of a raw-socket transport frame, carried in byte
// 0 of a [Header].
type FrameKind uint8

const (
	FrameKindWAMP FrameKind = 0
	FrameKindPing FrameKind = 1
	FrameKindPong FrameKind = 2
)

// IsValid reports whether k is one of the three kinds defined by the
// raw-socket wire format.
func (k FrameKind) IsValid() bool {
	return k == FrameKindWAMP || k == FrameKindPing || k == FrameKindPong
}

const (
	headerKindMask   = 0xff000000
	headerKindShift  = 24
	headerLengthMask = 0x00ffffff
)

// Header is the 4-byte raw-socket message header of spec.md §3: byte 0 is
// the message kind, bytes 1-3 are a 24-bit big-endian payload length.
type Header struct {
	word uint32
}

// NewHeader builds a header for the given kind and payload length. length
// must fit in 24 bits; callers are expected to have already validated it
// against the negotiated limit.
func NewHeader(kind FrameKind, length uint32) Header {
	return Header{word: (uint32(kind) << headerKindShift) | (length & headerLengthMask)}
}

// HeaderFromBigEndian parses a header from its 4-byte big-endian wire
// representation.
func HeaderFromBigEndian(b []byte) Header {
	return Header{word: binary.BigEndian.Uint32(b)}
}

// HeaderFromHostOrder constructs a header directly from a host-order
// 32-bit word, as the reference implementation's RawsockHeader does.
func HeaderFromHostOrder(word uint32) Header {
	return Header{word: word}
}

// Kind returns the frame kind encoded in the header.
func (h Header) Kind() FrameKind {
	return FrameKind((h.word & headerKindMask) >> headerKindShift)
}

// Length returns the 24-bit payload length encoded in the header.
func (h Header) Length() uint32 {
	return h.word & headerLengthMask
}

// AppendBigEndian appends the header's big-endian wire representation to
// dst and returns the extended slice.
func (h Header) AppendBigEndian(dst []byte) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.word)
	return append(dst, b[:]...)
}

// Bytes returns the header's 4-byte big-endian wire representation.
func (h Header) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.word)
	return b
}
