// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wampmsg defines the WAMP v2 message types exchanged between
// peers as described in SPEC_FULL.md §3/§4.I, and the codec interface
// the session/rpc/pubsub layers use to move them to and from the wire.
package wampmsg

// Type is a WAMP message type code, per the WAMP v2 Basic and Advanced
// Profile specifications.
type Type int

const (
	TypeHello         Type = 1
	TypeWelcome       Type = 2
	TypeAbort         Type = 3
	TypeGoodbye       Type = 6
	TypeError         Type = 8
	TypePublish       Type = 16
	TypePublished     Type = 17
	TypeSubscribe     Type = 32
	TypeSubscribed    Type = 33
	TypeUnsubscribe   Type = 34
	TypeUnsubscribed  Type = 35
	TypeEvent         Type = 36
	TypeCall          Type = 48
	TypeCancel        Type = 49
	TypeResult        Type = 50
	TypeRegister      Type = 64
	TypeRegistered    Type = 65
	TypeUnregister    Type = 66
	TypeUnregistered  Type = 67
	TypeInvocation    Type = 68
	TypeInterrupt     Type = 69
	TypeYield         Type = 70
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeWelcome:
		return "WELCOME"
	case TypeAbort:
		return "ABORT"
	case TypeGoodbye:
		return "GOODBYE"
	case TypeError:
		return "ERROR"
	case TypePublish:
		return "PUBLISH"
	case TypePublished:
		return "PUBLISHED"
	case TypeSubscribe:
		return "SUBSCRIBE"
	case TypeSubscribed:
		return "SUBSCRIBED"
	case TypeUnsubscribe:
		return "UNSUBSCRIBE"
	case TypeUnsubscribed:
		return "UNSUBSCRIBED"
	case TypeEvent:
		return "EVENT"
	case TypeCall:
		return "CALL"
	case TypeCancel:
		return "CANCEL"
	case TypeResult:
		return "RESULT"
	case TypeRegister:
		return "REGISTER"
	case TypeRegistered:
		return "REGISTERED"
	case TypeUnregister:
		return "UNREGISTER"
	case TypeUnregistered:
		return "UNREGISTERED"
	case TypeInvocation:
		return "INVOCATION"
	case TypeInterrupt:
		return "INTERRUPT"
	case TypeYield:
		return "YIELD"
	default:
		return "UNKNOWN"
	}
}

// Options is a WAMP options/details dictionary.
type Options map[string]any

// Args is a positional argument list.
type Args []any

// Kwargs is a keyword argument dictionary.
type Kwargs map[string]any

// Message is any WAMP message that can be framed onto the wire.
type Message interface {
	Type() Type
}

// CancelMode selects how a CANCEL request is handled by the router, per
// SPEC_FULL.md §4.J.2.
type CancelMode string

const (
	CancelModeKill       CancelMode = "kill"
	CancelModeKillNoWait CancelMode = "killnowait"
	CancelModeSkip       CancelMode = "skip"
)

// MatchPolicy selects how a registration or subscription URI is matched
// against an incoming CALL/PUBLISH topic, per SPEC_FULL.md §3.
type MatchPolicy string

const (
	MatchExact    MatchPolicy = "exact"
	MatchPrefix   MatchPolicy = "prefix"
	MatchWildcard MatchPolicy = "wildcard"
)

type Hello struct {
	Realm   string
	Details Options
}

func (Hello) Type() Type { return TypeHello }

type Welcome struct {
	Session int64
	Details Options
}

func (Welcome) Type() Type { return TypeWelcome }

type Abort struct {
	Details Options
	Reason  string
}

func (Abort) Type() Type { return TypeAbort }

type Goodbye struct {
	Details Options
	Reason  string
}

func (Goodbye) Type() Type { return TypeGoodbye }

// Error carries the REQUEST.Type of the message it replies to, so a
// decoder that has not tracked pending requests can still route it.
type Error struct {
	RequestType Type
	Request     int64
	Details     Options
	Reason      string
	Args        Args
	Kwargs      Kwargs
}

func (Error) Type() Type { return TypeError }

type Publish struct {
	Request int64
	Options Options
	Topic   string
	Args    Args
	Kwargs  Kwargs
}

func (Publish) Type() Type { return TypePublish }

type Published struct {
	Request    int64
	Publication int64
}

func (Published) Type() Type { return TypePublished }

type Subscribe struct {
	Request int64
	Options Options
	Topic   string
}

func (Subscribe) Type() Type { return TypeSubscribe }

type Subscribed struct {
	Request      int64
	Subscription int64
}

func (Subscribed) Type() Type { return TypeSubscribed }

type Unsubscribe struct {
	Request      int64
	Subscription int64
}

func (Unsubscribe) Type() Type { return TypeUnsubscribe }

type Unsubscribed struct {
	Request int64
}

func (Unsubscribed) Type() Type { return TypeUnsubscribed }

type Event struct {
	Subscription int64
	Publication  int64
	Details      Options
	Args         Args
	Kwargs       Kwargs
}

func (Event) Type() Type { return TypeEvent }

type Call struct {
	Request   int64
	Options   Options
	Procedure string
	Args      Args
	Kwargs    Kwargs
}

func (Call) Type() Type { return TypeCall }

type Cancel struct {
	Request int64
	Options Options
}

func (Cancel) Type() Type { return TypeCancel }

type Result struct {
	Request int64
	Details Options
	Args    Args
	Kwargs  Kwargs
}

func (Result) Type() Type { return TypeResult }

type Register struct {
	Request   int64
	Options   Options
	Procedure string
}

func (Register) Type() Type { return TypeRegister }

type Registered struct {
	Request      int64
	Registration int64
}

func (Registered) Type() Type { return TypeRegistered }

type Unregister struct {
	Request      int64
	Registration int64
}

func (Unregister) Type() Type { return TypeUnregister }

type Unregistered struct {
	Request int64
}

func (Unregistered) Type() Type { return TypeUnregistered }

type Invocation struct {
	Request      int64
	Registration int64
	Details      Options
	Args         Args
	Kwargs       Kwargs
}

func (Invocation) Type() Type { return TypeInvocation }

type Interrupt struct {
	Request int64
	Options Options
}

func (Interrupt) Type() Type { return TypeInterrupt }

type Yield struct {
	Request int64
	Options Options
	Args    Args
	Kwargs  Kwargs
}

func (Yield) Type() Type { return TypeYield }

// Progressive reports whether opts carries progress=true, the flag
// shared by CALL, INVOCATION, RESULT, and YIELD to mark a non-final
// chunk of a streaming exchange (SPEC_FULL.md §4.J.4).
func Progressive(opts Options) bool {
	v, ok := opts["progress"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
