package wampmsg

import (
	"fmt"

	"github.com/segmentio/encoding/json"

	"github.com/wampgo/wampcore/debugflags"
)

// Codec encodes and decodes WAMP messages to and from the wire
// representation of a single negotiated serialization format, per
// SPEC_FULL.md §1 ("serialization codecs are external collaborators; the
// core consumes an encode/decode interface").
type Codec interface {
	// Name is the codec's WAMP subprotocol/handshake identifier, e.g.
	// "json".
	Name() string
	// Encode serializes msg as one complete wire payload.
	Encode(msg Message) ([]byte, error)
	// Decode parses one complete wire payload into a Message.
	Decode(payload []byte) (Message, error)
	// Binary reports whether the wire representation is binary (as
	// opposed to UTF-8 text), which the transport layer uses to choose
	// between WebSocket text and binary frames.
	Binary() bool
}

// JSONCodec implements [Codec] over the WAMP JSON array wire format,
// backed by github.com/segmentio/encoding/json for allocation-light
// marshaling on the hot path.
type JSONCodec struct{}

func (JSONCodec) Name() string  { return "json" }
func (JSONCodec) Binary() bool  { return false }

func (JSONCodec) Encode(msg Message) ([]byte, error) {
	arr, err := toArray(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(arr)
}

func (JSONCodec) Decode(payload []byte) (Message, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("wampmsg: empty message array")
	}
	var typ int
	if err := json.Unmarshal(raw[0], &typ); err != nil {
		return nil, fmt.Errorf("wampmsg: decoding message type: %w", err)
	}
	if debugflags.StrictDecoding() {
		for _, field := range raw {
			if err := validateNoDuplicateKeys(field); err != nil {
				return nil, err
			}
		}
	}
	return fromArray(Type(typ), raw)
}

func unmarshalField(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("wampmsg: %w", err)
	}
	return nil
}

func field(raw []json.RawMessage, i int) (json.RawMessage, bool) {
	if i >= len(raw) {
		return nil, false
	}
	return raw[i], true
}

func toArray(msg Message) ([]any, error) {
	switch m := msg.(type) {
	case Hello:
		return []any{int(TypeHello), m.Realm, optsOrEmpty(m.Details)}, nil
	case Welcome:
		return []any{int(TypeWelcome), m.Session, optsOrEmpty(m.Details)}, nil
	case Abort:
		return []any{int(TypeAbort), optsOrEmpty(m.Details), m.Reason}, nil
	case Goodbye:
		return []any{int(TypeGoodbye), optsOrEmpty(m.Details), m.Reason}, nil
	case Error:
		return appendArgs([]any{int(TypeError), int(m.RequestType), m.Request, optsOrEmpty(m.Details), m.Reason}, m.Args, m.Kwargs), nil
	case Publish:
		return appendArgs([]any{int(TypePublish), m.Request, optsOrEmpty(m.Options), m.Topic}, m.Args, m.Kwargs), nil
	case Published:
		return []any{int(TypePublished), m.Request, m.Publication}, nil
	case Subscribe:
		return []any{int(TypeSubscribe), m.Request, optsOrEmpty(m.Options), m.Topic}, nil
	case Subscribed:
		return []any{int(TypeSubscribed), m.Request, m.Subscription}, nil
	case Unsubscribe:
		return []any{int(TypeUnsubscribe), m.Request, m.Subscription}, nil
	case Unsubscribed:
		return []any{int(TypeUnsubscribed), m.Request}, nil
	case Event:
		return appendArgs([]any{int(TypeEvent), m.Subscription, m.Publication, optsOrEmpty(m.Details)}, m.Args, m.Kwargs), nil
	case Call:
		return appendArgs([]any{int(TypeCall), m.Request, optsOrEmpty(m.Options), m.Procedure}, m.Args, m.Kwargs), nil
	case Cancel:
		return []any{int(TypeCancel), m.Request, optsOrEmpty(m.Options)}, nil
	case Result:
		return appendArgs([]any{int(TypeResult), m.Request, optsOrEmpty(m.Details)}, m.Args, m.Kwargs), nil
	case Register:
		return []any{int(TypeRegister), m.Request, optsOrEmpty(m.Options), m.Procedure}, nil
	case Registered:
		return []any{int(TypeRegistered), m.Request, m.Registration}, nil
	case Unregister:
		return []any{int(TypeUnregister), m.Request, m.Registration}, nil
	case Unregistered:
		return []any{int(TypeUnregistered), m.Request}, nil
	case Invocation:
		return appendArgs([]any{int(TypeInvocation), m.Request, m.Registration, optsOrEmpty(m.Details)}, m.Args, m.Kwargs), nil
	case Interrupt:
		return []any{int(TypeInterrupt), m.Request, optsOrEmpty(m.Options)}, nil
	case Yield:
		return appendArgs([]any{int(TypeYield), m.Request, optsOrEmpty(m.Options)}, m.Args, m.Kwargs), nil
	default:
		return nil, fmt.Errorf("wampmsg: unsupported message type %T", msg)
	}
}

func optsOrEmpty(o Options) Options {
	if o == nil {
		return Options{}
	}
	return o
}

// appendArgs appends args/kwargs to the fixed prefix fields, omitting
// trailing empty elements per the WAMP wire convention that Args/Kwargs
// are only present when non-empty.
func appendArgs(prefix []any, args Args, kwargs Kwargs) []any {
	if len(kwargs) > 0 {
		if args == nil {
			args = Args{}
		}
		return append(prefix, args, kwargs)
	}
	if len(args) > 0 {
		return append(prefix, args)
	}
	return prefix
}

func fromArray(typ Type, raw []json.RawMessage) (Message, error) {
	get := func(i int) (json.RawMessage, bool) { return field(raw, i) }
	strict := debugflags.StrictDecoding()

	var argsOf = func(argsIdx int) (Args, Kwargs, error) {
		var args Args
		var kwargs Kwargs
		if r, ok := get(argsIdx); ok {
			if err := unmarshalField(r, &args); err != nil {
				return nil, nil, err
			}
		}
		if r, ok := get(argsIdx + 1); ok {
			if err := unmarshalField(r, &kwargs); err != nil {
				return nil, nil, err
			}
		}
		return args, kwargs, nil
	}

	switch typ {
	case TypeHello:
		var m Hello
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Realm); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeWelcome:
		var m Welcome
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Session); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeAbort:
		var m Abort
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Reason); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeGoodbye:
		var m Goodbye
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Reason); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeError:
		var m Error
		var reqType int
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &reqType); err != nil && strict {
				return nil, err
			}
		}
		m.RequestType = Type(reqType)
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(4); ok {
			if err := unmarshalField(r, &m.Reason); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(5)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	case TypePublish:
		var m Publish
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Topic); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(4)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	case TypePublished:
		var m Published
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Publication); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeSubscribe:
		var m Subscribe
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Topic); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeSubscribed:
		var m Subscribed
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Subscription); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeUnsubscribe:
		var m Unsubscribe
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Subscription); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeUnsubscribed:
		var m Unsubscribed
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeEvent:
		var m Event
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Subscription); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Publication); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(4)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	case TypeCall:
		var m Call
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Procedure); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(4)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	case TypeCancel:
		var m Cancel
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeResult:
		var m Result
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(3)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	case TypeRegister:
		var m Register
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Procedure); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeRegistered:
		var m Registered
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Registration); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeUnregister:
		var m Unregister
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Registration); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeUnregistered:
		var m Unregistered
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeInvocation:
		var m Invocation
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Registration); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(3); ok {
			if err := unmarshalField(r, &m.Details); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(4)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	case TypeInterrupt:
		var m Interrupt
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		return m, nil
	case TypeYield:
		var m Yield
		if r, ok := get(1); ok {
			if err := unmarshalField(r, &m.Request); err != nil && strict {
				return nil, err
			}
		}
		if r, ok := get(2); ok {
			if err := unmarshalField(r, &m.Options); err != nil && strict {
				return nil, err
			}
		}
		args, kwargs, err := argsOf(3)
		if err != nil {
			return nil, err
		}
		m.Args, m.Kwargs = args, kwargs
		return m, nil
	default:
		return nil, fmt.Errorf("wampmsg: unknown message type %d", int(typ))
	}
}
