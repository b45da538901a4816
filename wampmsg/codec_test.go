package wampmsg

import "testing"

func TestJSONCodecRoundTripHello(t *testing.T) {
	var c JSONCodec
	msg := Hello{Realm: "realm1", Details: Options{"roles": Options{"caller": Options{}}}}
	wire, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	h, ok := got.(Hello)
	if !ok {
		t.Fatalf("got %T, want Hello", got)
	}
	if h.Realm != "realm1" {
		t.Errorf("Realm = %q, want realm1", h.Realm)
	}
}

func TestJSONCodecRoundTripCallWithArgsAndKwargs(t *testing.T) {
	var c JSONCodec
	msg := Call{
		Request:   123,
		Options:   Options{"receive_progress": true},
		Procedure: "com.example.add",
		Args:      Args{1.0, 2.0},
		Kwargs:    Kwargs{"unit": "meters"},
	}
	wire, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	call, ok := got.(Call)
	if !ok {
		t.Fatalf("got %T, want Call", got)
	}
	if call.Request != 123 || call.Procedure != "com.example.add" {
		t.Errorf("got %+v", call)
	}
	if len(call.Args) != 2 || len(call.Kwargs) != 1 {
		t.Errorf("args/kwargs not round-tripped: %+v", call)
	}
}

func TestJSONCodecRoundTripCallWithoutArgs(t *testing.T) {
	var c JSONCodec
	msg := Call{Request: 1, Procedure: "com.example.ping"}
	wire, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	call := got.(Call)
	if len(call.Args) != 0 || len(call.Kwargs) != 0 {
		t.Errorf("expected no args/kwargs, got %+v", call)
	}
}

func TestJSONCodecRoundTripError(t *testing.T) {
	var c JSONCodec
	msg := Error{
		RequestType: TypeCall,
		Request:     42,
		Details:     Options{},
		Reason:      "wamp.error.no_such_procedure",
	}
	wire, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	e := got.(Error)
	if e.RequestType != TypeCall || e.Request != 42 || e.Reason != "wamp.error.no_such_procedure" {
		t.Errorf("got %+v", e)
	}
}

func TestJSONCodecProgressiveFlag(t *testing.T) {
	if !Progressive(Options{"progress": true}) {
		t.Errorf("expected progress=true to be detected")
	}
	if Progressive(Options{}) {
		t.Errorf("expected missing progress to be false")
	}
	if Progressive(nil) {
		t.Errorf("expected nil options to be false")
	}
}

func TestJSONCodecDecodeEmptyPayload(t *testing.T) {
	var c JSONCodec
	if _, err := c.Decode([]byte("[]")); err == nil {
		t.Errorf("expected error decoding empty array")
	}
}
