package werr

// AdmissionStatus classifies the outcome of an HTTP/WebSocket admission
// attempt for logging, per spec.md §7 item 5.
type AdmissionStatus int

const (
	AdmissionWAMP AdmissionStatus = iota
	AdmissionResponded
	AdmissionRejected
	AdmissionShedded
	AdmissionCancelled
	AdmissionDisconnected
	AdmissionFailed
)

func (s AdmissionStatus) String() string {
	switch s {
	case AdmissionWAMP:
		return "wamp"
	case AdmissionResponded:
		return "responded"
	case AdmissionRejected:
		return "rejected"
	case AdmissionShedded:
		return "shedded"
	case AdmissionCancelled:
		return "cancelled"
	case AdmissionDisconnected:
		return "disconnected"
	case AdmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// WSCloseErrc is a WebSocket close-code value treated as an error
// category, mirroring the reference implementation's
// WebsocketCloseCategory: the numeric value of the error IS the close
// code (1000-1013), matching RFC 6455 §7.4.
type WSCloseErrc int

const (
	WSCloseNormal         WSCloseErrc = 1000
	WSCloseGoingAway      WSCloseErrc = 1001
	WSCloseProtocolError  WSCloseErrc = 1002
	WSCloseUnknownData    WSCloseErrc = 1003
	WSCloseBadPayload     WSCloseErrc = 1007
	WSClosePolicyError    WSCloseErrc = 1008
	WSCloseTooBig         WSCloseErrc = 1009
	WSCloseNeedExtension  WSCloseErrc = 1010
	WSCloseInternalError  WSCloseErrc = 1011
	WSCloseServiceRestart WSCloseErrc = 1012
	WSCloseTryAgainLater  WSCloseErrc = 1013
)

var wsCloseMessages = map[WSCloseErrc]string{
	WSCloseNormal:         "websocket connection successfully fulfilled its purpose",
	WSCloseGoingAway:      "websocket peer is navigating away or going down",
	WSCloseProtocolError:  "websocket protocol error",
	WSCloseUnknownData:    "websocket peer cannot accept data type",
	WSCloseBadPayload:     "invalid websocket message data type",
	WSClosePolicyError:    "websocket peer received a message violating its policy",
	WSCloseTooBig:         "websocket peer received a message too big to process",
	WSCloseNeedExtension:  "websocket server lacks extension expected by client",
	WSCloseInternalError:  "websocket server encountered an unexpected condition",
	WSCloseServiceRestart: "websocket server is restarting",
	WSCloseTryAgainLater:  "websocket connection terminated due to temporary server condition",
}

func (e WSCloseErrc) Error() string {
	if m, ok := wsCloseMessages[e]; ok {
		return m
	}
	if e < 1000 || e > 1013 {
		return "websocket: unrecognized close code"
	}
	return "websocket connection closed abnormally for unknown reason"
}

// HTTPAdmitErrc classifies the outcome of admitting one plain HTTP
// request, before any WAMP session exists, per spec.md §4.H. Each
// value carries the HTTP status code the admission front-end renders
// for it.
type HTTPAdmitErrc int

const (
	HTTPAdmitBadRequest         HTTPAdmitErrc = 400
	HTTPAdmitMisdirectedRequest HTTPAdmitErrc = 421
	HTTPAdmitContentTooLarge    HTTPAdmitErrc = 413
	HTTPAdmitNotFound           HTTPAdmitErrc = 404
	HTTPAdmitTooManyRequests    HTTPAdmitErrc = 429
)

var httpAdmitMessages = map[HTTPAdmitErrc]string{
	HTTPAdmitBadRequest:         "malformed request-target or request line",
	HTTPAdmitMisdirectedRequest: "request-target form not permitted for this verb, or host does not match any server block",
	HTTPAdmitContentTooLarge:    "declared content-length exceeds the server block's body limit",
	HTTPAdmitNotFound:           "no action configured for this request-target path",
	HTTPAdmitTooManyRequests:    "admission governor is shedding new connections",
}

// StatusCode returns the HTTP status this admission error renders as.
func (e HTTPAdmitErrc) StatusCode() int { return int(e) }

func (e HTTPAdmitErrc) Error() string {
	if m, ok := httpAdmitMessages[e]; ok {
		return m
	}
	return "http admission: unrecognized condition"
}
