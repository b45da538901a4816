package wireframe

import (
	"testing"

	"github.com/wampgo/wampcore/werr"
)

func TestHandshakeRoundTrip(t *testing.T) {
	for codec := CodecIDJSON; codec <= MaxKnownCodecID; codec++ {
		for maxLen := MaxLengthCode(0); maxLen < 16; maxLen++ {
			h := NewHandshake(codec, maxLen)
			wire := h.Bytes()
			got := HandshakeFromBigEndian(wire[:])
			if !got.HasMagicOctet() {
				t.Fatalf("codec=%d maxLen=%d: missing magic octet", codec, maxLen)
			}
			if got.CodecID() != codec {
				t.Errorf("codec=%d maxLen=%d: CodecID() = %d", codec, maxLen, got.CodecID())
			}
			if got.MaxLengthCode() != maxLen {
				t.Errorf("codec=%d maxLen=%d: MaxLengthCode() = %d", codec, maxLen, got.MaxLengthCode())
			}
			if got.Reserved() != 0 {
				t.Errorf("codec=%d maxLen=%d: Reserved() = %d, want 0", codec, maxLen, got.Reserved())
			}
			if got.IsError() {
				t.Errorf("codec=%d maxLen=%d: IsError() = true", codec, maxLen)
			}
		}
	}
}

func TestMaxLengthCodeByteLength(t *testing.T) {
	cases := []struct {
		code MaxLengthCode
		want uint32
	}{
		{0, 512},
		{1, 1024},
		{9, 256 * 1024},
		{15, 16 * 1024 * 1024},
	}
	for _, c := range cases {
		if got := c.code.ByteLength(); got != c.want {
			t.Errorf("MaxLengthCode(%d).ByteLength() = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestNewErrorHandshakeRoundTrip(t *testing.T) {
	errcs := []werr.TransportErrc{
		werr.TransportErrcUnsupportedFormat,
		werr.TransportErrcUnacceptableLength,
		werr.TransportErrcReservedBitsUsed,
		werr.TransportErrcMaxConnections,
	}
	for _, errc := range errcs {
		h := NewErrorHandshake(errc)
		if !h.HasMagicOctet() {
			t.Fatalf("%v: missing magic octet", errc)
		}
		if !h.IsError() {
			t.Fatalf("%v: IsError() = false", errc)
		}
		if got := h.ErrorCode(); got != errc {
			t.Errorf("%v: ErrorCode() = %v", errc, got)
		}
	}
}

func TestValidateAsClientAcceptsMatchingCodec(t *testing.T) {
	h := NewHandshake(CodecIDJSON, 9)
	codec, maxLen, err := ValidateAsClient(h, CodecIDJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codec != CodecIDJSON || maxLen != 9 {
		t.Errorf("got codec=%d maxLen=%d", codec, maxLen)
	}
}

func TestValidateAsClientRejectsCodecMismatch(t *testing.T) {
	h := NewHandshake(CodecIDMsgpack, 9)
	_, _, err := ValidateAsClient(h, CodecIDJSON)
	if err != werr.TransportErrcUnsupportedFormat {
		t.Errorf("got %v, want TransportErrcUnsupportedFormat", err)
	}
}

func TestValidateAsClientRejectsMissingMagic(t *testing.T) {
	h := HandshakeFromHostOrder(0x00100000)
	_, _, err := ValidateAsClient(h, CodecIDJSON)
	if err != werr.TransportErrcBadHandshake {
		t.Errorf("got %v, want TransportErrcBadHandshake", err)
	}
}

func TestValidateAsClientRejectsReservedBits(t *testing.T) {
	h := HandshakeFromHostOrder(uint32(magicOctet)<<magicShift | uint32(CodecIDJSON)<<highNibbleShift | 1)
	_, _, err := ValidateAsClient(h, CodecIDJSON)
	if err != werr.TransportErrcReservedBitsUsed {
		t.Errorf("got %v, want TransportErrcReservedBitsUsed", err)
	}
}

func TestValidateAsClientPropagatesErrorHandshake(t *testing.T) {
	h := NewErrorHandshake(werr.TransportErrcMaxConnections)
	_, _, err := ValidateAsClient(h, CodecIDJSON)
	if err != werr.TransportErrcMaxConnections {
		t.Errorf("got %v, want TransportErrcMaxConnections", err)
	}
}

func TestValidateAsServerAcceptsSupportedCodec(t *testing.T) {
	h := NewHandshake(CodecIDCBOR, 9)
	supports := func(c CodecID) bool { return c == CodecIDCBOR }
	codec, maxLen, err := ValidateAsServer(h, supports)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codec != CodecIDCBOR || maxLen != 9 {
		t.Errorf("got codec=%d maxLen=%d", codec, maxLen)
	}
}

func TestValidateAsServerRejectsUnsupportedCodec(t *testing.T) {
	h := NewHandshake(CodecIDMsgpack, 9)
	supports := func(c CodecID) bool { return c == CodecIDJSON }
	_, _, err := ValidateAsServer(h, supports)
	if err != werr.TransportErrcUnsupportedFormat {
		t.Errorf("got %v, want TransportErrcUnsupportedFormat", err)
	}
}
