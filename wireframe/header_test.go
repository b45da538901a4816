package wireframe

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	kinds := []FrameKind{FrameKindWAMP, FrameKindPing, FrameKindPong}
	lengths := []uint32{0, 1, 255, 1 << 16, 1<<24 - 1}
	for _, kind := range kinds {
		for _, length := range lengths {
			h := NewHeader(kind, length)
			wire := h.Bytes()
			got := HeaderFromBigEndian(wire[:])
			if got.Kind() != kind {
				t.Errorf("kind=%d length=%d: Kind() = %d", kind, length, got.Kind())
			}
			if got.Length() != length {
				t.Errorf("kind=%d length=%d: Length() = %d", kind, length, got.Length())
			}
		}
	}
}

func TestFrameKindIsValid(t *testing.T) {
	for k := FrameKind(0); k < 3; k++ {
		if !k.IsValid() {
			t.Errorf("FrameKind(%d).IsValid() = false, want true", k)
		}
	}
	if FrameKind(3).IsValid() {
		t.Errorf("FrameKind(3).IsValid() = true, want false")
	}
}

func TestHeaderTruncatesLengthTo24Bits(t *testing.T) {
	h := NewHeader(FrameKindWAMP, 1<<24)
	if h.Length() != 0 {
		t.Errorf("Length() = %d, want 0 (24-bit wraparound)", h.Length())
	}
}
