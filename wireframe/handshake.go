package wireframe

import (
	"encoding/binary"

	"github.com/wampgo/wampcore/werr"
)

// CodecID identifies the serialization codec negotiated during the
// raw-socket handshake.
type CodecID uint8

const (
	CodecIDNone      CodecID = 0 // only valid in an error handshake word
	CodecIDJSON      CodecID = 1
	CodecIDMsgpack   CodecID = 2
	CodecIDCBOR      CodecID = 3
	MaxKnownCodecID          = CodecIDCBOR
)

// MaxLengthCode is the 4-bit code negotiated during the handshake; the
// byte length it represents is 2^(code+9), per spec.md §3.
type MaxLengthCode uint8

// ByteLength returns the maximum message length in bytes that c encodes.
func (c MaxLengthCode) ByteLength() uint32 {
	return 1 << (uint(c) + 9)
}

// MaxLengthCodeForBytes returns the smallest MaxLengthCode whose
// ByteLength is >= n, capped at 15 (the largest 4-bit code).
func MaxLengthCodeForBytes(n uint32) MaxLengthCode {
	for c := MaxLengthCode(0); c < 15; c++ {
		if c.ByteLength() >= n {
			return c
		}
	}
	return 15
}

const (
	magicOctet        uint32 = 0x7F
	magicShift               = 24
	magicMask         uint32 = 0xFF000000
	highNibbleShift          = 20
	highNibbleMask    uint32 = 0x00F00000
	lowNibbleShift           = 16
	lowNibbleMask     uint32 = 0x000F0000
	reservedMask      uint32 = 0x0000FFFF
)

// Handshake is the 4-byte raw-socket handshake word of spec.md §3.
//
// Byte 0 is the magic octet 0x7F. Byte 1's high nibble carries the codec
// id when non-zero; byte 1's low nibble carries the max-length code in a
// successful handshake, or an error code when the high nibble is zero
// (an error handshake). Bytes 2-3 are reserved and must be zero on
// success.
type Handshake struct {
	word uint32
}

// NewHandshake builds a successful handshake word for the given codec and
// max-length code.
func NewHandshake(codec CodecID, maxLen MaxLengthCode) Handshake {
	word := magicOctet<<magicShift |
		(uint32(codec)<<highNibbleShift)&highNibbleMask |
		(uint32(maxLen)<<lowNibbleShift)&lowNibbleMask
	return Handshake{word: word}
}

// NewErrorHandshake builds an error handshake word carrying errc in the
// low nibble, matching the reference implementation's
// eUnsupportedFormat/eUnacceptableLength/eReservedBitsUsed/
// eMaxConnections constructors.
func NewErrorHandshake(errc werr.TransportErrc) Handshake {
	code, ok := transportErrcToHandshakeCode[errc]
	if !ok {
		code = 0
	}
	word := magicOctet<<magicShift | (uint32(code)<<lowNibbleShift)&lowNibbleMask
	return Handshake{word: word}
}

var transportErrcToHandshakeCode = map[werr.TransportErrc]uint8{
	werr.TransportErrcUnsupportedFormat:  1,
	werr.TransportErrcUnacceptableLength: 2,
	werr.TransportErrcReservedBitsUsed:   3,
	werr.TransportErrcMaxConnections:     4,
}

var handshakeCodeToTransportErrc = map[uint8]werr.TransportErrc{
	1: werr.TransportErrcUnsupportedFormat,
	2: werr.TransportErrcUnacceptableLength,
	3: werr.TransportErrcReservedBitsUsed,
	4: werr.TransportErrcMaxConnections,
}

// HandshakeFromBigEndian parses a handshake from its 4-byte big-endian
// wire representation.
func HandshakeFromBigEndian(b []byte) Handshake {
	return Handshake{word: binary.BigEndian.Uint32(b)}
}

// HandshakeFromHostOrder constructs a handshake directly from a
// host-order 32-bit word.
func HandshakeFromHostOrder(word uint32) Handshake {
	return Handshake{word: word}
}

// HasMagicOctet reports whether byte 0 is the expected 0x7F magic value.
func (h Handshake) HasMagicOctet() bool {
	return (h.word&magicMask)>>magicShift == magicOctet
}

// CodecID returns the codec id carried in byte 1's high nibble.
func (h Handshake) CodecID() CodecID {
	return CodecID((h.word & highNibbleMask) >> highNibbleShift)
}

// IsError reports whether this is an error handshake word (codec id zero).
func (h Handshake) IsError() bool {
	return h.CodecID() == CodecIDNone
}

// MaxLengthCode returns the max-length code carried in byte 1's low
// nibble. Only meaningful when !IsError().
func (h Handshake) MaxLengthCode() MaxLengthCode {
	return MaxLengthCode((h.word & lowNibbleMask) >> lowNibbleShift)
}

// MaxLengthBytes returns the byte length represented by MaxLengthCode.
func (h Handshake) MaxLengthBytes() uint32 {
	return h.MaxLengthCode().ByteLength()
}

// ErrorCode returns the TransportErrc carried in byte 1's low nibble of
// an error handshake word. Only meaningful when IsError().
func (h Handshake) ErrorCode() werr.TransportErrc {
	code := uint8((h.word & lowNibbleMask) >> lowNibbleShift)
	if errc, ok := handshakeCodeToTransportErrc[code]; ok {
		return errc
	}
	return werr.TransportErrcBadHandshake
}

// Reserved returns bytes 2-3, which must be zero on a successful
// handshake.
func (h Handshake) Reserved() uint16 {
	return uint16(h.word & reservedMask)
}

// AppendBigEndian appends the handshake's big-endian wire representation
// to dst and returns the extended slice.
func (h Handshake) AppendBigEndian(dst []byte) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.word)
	return append(dst, b[:]...)
}

// Bytes returns the handshake's 4-byte big-endian wire representation.
func (h Handshake) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.word)
	return b
}

// ToHostOrder returns the handshake word in host byte order.
func (h Handshake) ToHostOrder() uint32 { return h.word }

// Policy bounds the largest max-length code this side will accept. It
// holds no codec set; ValidateAsServer takes a supportsCodec function
// for that.
type Policy struct {
	MaxLengthCode MaxLengthCode
}

// ValidateAsClient validates a server's handshake response against the
// codec this client requested, per spec.md §4.B/§4.F ("Client
// handshake"): verify magic, reject on reserved bits, accept if codec id
// matches, else read the explicit error code.
func ValidateAsClient(h Handshake, wantCodec CodecID) (CodecID, MaxLengthCode, error) {
	if !h.HasMagicOctet() {
		return 0, 0, werr.TransportErrcBadHandshake
	}
	if h.Reserved() != 0 {
		return 0, 0, werr.TransportErrcReservedBitsUsed
	}
	if h.IsError() {
		return 0, 0, h.ErrorCode()
	}
	if h.CodecID() != wantCodec {
		return 0, 0, werr.TransportErrcUnsupportedFormat
	}
	return h.CodecID(), h.MaxLengthCode(), nil
}

// ValidateAsServer validates a client's handshake request against the
// server's accepted codec set: a missing magic octet yields
// badHandshake, set reserved bits yield reservedBitsUsed, and a zero or
// unsupported codec id yields unsupportedFormat. On success it returns
// the client's codec id and requested max-length code. It builds no
// reply; rawsocket.AcceptServer replies with the smaller of the client's
// code and the server's own, not with the server's own code alone.
func ValidateAsServer(h Handshake, supportsCodec func(CodecID) bool) (CodecID, MaxLengthCode, error) {
	if !h.HasMagicOctet() {
		return 0, 0, werr.TransportErrcBadHandshake
	}
	if h.Reserved() != 0 {
		return 0, 0, werr.TransportErrcReservedBitsUsed
	}
	codec := h.CodecID()
	if codec == CodecIDNone || !supportsCodec(codec) {
		return 0, 0, werr.TransportErrcUnsupportedFormat
	}
	return codec, h.MaxLengthCode(), nil
}
