package werr

// DecodingErrc is a codec decoding error code. [WrapCodecError] maps any
// non-nil codec library error (JSON/MessagePack/CBOR) to
// DecodingErrcFailed.
type DecodingErrc int

const (
	DecodingErrcSuccess DecodingErrc = iota
	DecodingErrcFailed
	DecodingErrcEmptyInput
	DecodingErrcExpectedStringKey
	DecodingErrcBadBase64Length
	DecodingErrcBadBase64Padding
	DecodingErrcBadBase64Char
)

var decodingMessages = map[DecodingErrc]string{
	DecodingErrcSuccess:           "decoding successful",
	DecodingErrcFailed:            "decoding failed",
	DecodingErrcEmptyInput:        "input is empty or has no tokens",
	DecodingErrcExpectedStringKey: "expected a string key",
	DecodingErrcBadBase64Length:   "invalid base64 string length",
	DecodingErrcBadBase64Padding:  "invalid base64 padding",
	DecodingErrcBadBase64Char:     "invalid base64 character",
}

func (e DecodingErrc) Error() string {
	if m, ok := decodingMessages[e]; ok {
		return m
	}
	return "decoding: unrecognized error code"
}

// Is reports whether target is the same DecodingErrc. Foreign codec
// errors are not matched here; [WrapCodecError] converts them to
// DecodingErrcFailed before comparing.
func (e DecodingErrc) Is(target error) bool {
	t, ok := target.(DecodingErrc)
	if !ok {
		return false
	}
	return e == t
}

// WrapCodecError classifies an arbitrary error from a third-party codec
// library as DecodingErrcFailed, per spec.md §4.A ("DecodingErrc::failed
// subsumes any non-zero codec library code").
func WrapCodecError(err error) DecodingErrc {
	if err == nil {
		return DecodingErrcSuccess
	}
	return DecodingErrcFailed
}

// MiscErrc is an error code not belonging to another category.
type MiscErrc int

const (
	MiscErrcSuccess MiscErrc = iota
	MiscErrcAbandoned
	MiscErrcInvalidState
	MiscErrcAbsent
	MiscErrcAlreadyExists
	MiscErrcBadType
	MiscErrcNoSuchTopic
)

var miscMessages = map[MiscErrc]string{
	MiscErrcSuccess:       "operation successful",
	MiscErrcAbandoned:     "operation abandoned by this peer",
	MiscErrcInvalidState:  "invalid state for this operation",
	MiscErrcAbsent:        "item is absent",
	MiscErrcAlreadyExists: "item already exists",
	MiscErrcBadType:       "invalid or unexpected type",
	MiscErrcNoSuchTopic:   "no subscription under the given topic URI",
}

func (e MiscErrc) Error() string {
	if m, ok := miscMessages[e]; ok {
		return m
	}
	return "misc: unrecognized error code"
}
