// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package session implements the WAMP peer state machine atop a
// transport queue, per SPEC_FULL.md §4.I: establishing, authenticating,
// maintaining, and tearing down a session, with inbound messages routed
// to a single listener.
package session

import (
	"fmt"
	"sync"

	"github.com/wampgo/wampcore/wampmsg"
	"github.com/wampgo/wampcore/werr"
)

// State is a WAMP peer's position in the session lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateClosed
	StateEstablishing
	StateAuthenticating
	StateEstablished
	StateShuttingDown
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateClosed:
		return "closed"
	case StateEstablishing:
		return "establishing"
	case StateAuthenticating:
		return "authenticating"
	case StateEstablished:
		return "established"
	case StateShuttingDown:
		return "shuttingDown"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Listener receives the events a [Peer] dispatches over its lifetime.
// It is installed once at construction and lives as long as the peer,
// per SPEC_FULL.md §4.I.
type Listener interface {
	OnPeerMessage(msg wampmsg.Message)
	OnPeerGoodbye(reason string, initiatedByPeer bool)
	OnPeerAbort(reason string, initiatedByPeer bool)
	OnPeerFailure(err error, initiatedByPeer bool, reasonText string)
}

// Sender is the minimal outbound capability a [Peer] needs from its
// transport: encode and enqueue one WAMP message.
type Sender interface {
	SendMessage(msg wampmsg.Message) error
}

// Peer drives the WAMP session state machine for one connection. A Peer
// is not safe for concurrent use from multiple goroutines without
// external synchronization beyond what is documented per method; in
// practice it is driven exclusively from the owning transport's single
// receive/dispatch goroutine, consistent with the single-threaded
// strand model of SPEC_FULL.md §5.
type Peer struct {
	mu       sync.Mutex
	state    State
	listener Listener
	sender   Sender
	session  int64
	details  wampmsg.Options
}

// NewPeer constructs a disconnected Peer that will dispatch events to
// listener and send outbound messages through sender.
func NewPeer(listener Listener, sender Sender) *Peer {
	return &Peer{state: StateDisconnected, listener: listener, sender: sender}
}

// State returns the peer's current state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SessionID returns the session id assigned at WELCOME, or zero before
// the session is established.
func (p *Peer) SessionID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Connect drives disconnected -> connecting -> closed. The peer does no
// byte I/O of its own, so it passes through connecting at once and
// returns in closed, ready for SendHello. For a direct in-process
// connection (no byte I/O), callers are expected to immediately follow
// Connect with the router synchronously delivering WELCOME via
// HandleInbound, per SPEC_FULL.md §4.I.
func (p *Peer) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateDisconnected {
		return werr.MiscErrcInvalidState
	}
	p.state = StateConnecting
	p.state = StateClosed
	return nil
}

// allowedOutbound reports whether kind may be sent while in state,
// implementing SPEC_FULL.md §4.I's "every outbound send is refused
// (invalidState) if the current state does not permit that message
// kind."
func allowedOutbound(state State, kind wampmsg.Type) bool {
	switch state {
	case StateClosed:
		return kind == wampmsg.TypeHello
	case StateEstablishing, StateAuthenticating:
		return kind == wampmsg.TypeAbort
	case StateEstablished:
		return kind != wampmsg.TypeHello && kind != wampmsg.TypeWelcome
	case StateShuttingDown:
		return false
	default:
		return false
	}
}

// SendHello sends a HELLO for realm, driving closed -> establishing.
func (p *Peer) SendHello(realm string, details wampmsg.Options) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !allowedOutbound(p.state, wampmsg.TypeHello) {
		return werr.MiscErrcInvalidState
	}
	msg := wampmsg.Hello{Realm: realm, Details: details}
	if err := p.sender.SendMessage(msg); err != nil {
		return err
	}
	p.state = StateEstablishing
	return nil
}

// Send transmits msg if the current state permits its kind.
func (p *Peer) Send(msg wampmsg.Message) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if !allowedOutbound(state, msg.Type()) {
		return werr.MiscErrcInvalidState
	}
	return p.sender.SendMessage(msg)
}

// Goodbye sends GOODBYE with reason, driving established -> shuttingDown.
func (p *Peer) Goodbye(reason string, details wampmsg.Options) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateEstablished {
		return werr.MiscErrcInvalidState
	}
	msg := wampmsg.Goodbye{Reason: reason, Details: details}
	if err := p.sender.SendMessage(msg); err != nil {
		return err
	}
	p.state = StateShuttingDown
	return nil
}

// HandleInbound dispatches one decoded inbound message, advancing the
// state machine per SPEC_FULL.md §4.I's transition table.
func (p *Peer) HandleInbound(msg wampmsg.Message) {
	p.mu.Lock()
	switch m := msg.(type) {
	case wampmsg.Welcome:
		if p.state == StateEstablishing || p.state == StateAuthenticating {
			p.state = StateEstablished
			p.session = m.Session
			p.details = m.Details
		}
		p.mu.Unlock()
		p.listener.OnPeerMessage(msg)
		return
	case wampmsg.Goodbye:
		wasShuttingDown := p.state == StateShuttingDown
		p.state = StateClosed
		p.mu.Unlock()
		p.listener.OnPeerGoodbye(m.Reason, !wasShuttingDown)
		return
	case wampmsg.Abort:
		p.state = StateFailed
		p.mu.Unlock()
		p.listener.OnPeerAbort(m.Reason, true)
		return
	default:
		p.mu.Unlock()
		p.listener.OnPeerMessage(msg)
		return
	}
}

// Fail records a transport-level failure, driving the peer to failed
// from any state. The listener's OnPeerFailure is called only when the
// peer was establishing, established or shuttingDown.
func (p *Peer) Fail(err error, reasonText string) {
	p.mu.Lock()
	shouldReport := p.state == StateEstablished || p.state == StateShuttingDown || p.state == StateEstablishing
	p.state = StateFailed
	p.mu.Unlock()
	if shouldReport {
		p.listener.OnPeerFailure(err, false, reasonText)
	}
}

// Abort sends ABORT with reason and drives the peer to failed, as the
// reference session does on an authentication or protocol violation it
// detects locally.
func (p *Peer) Abort(reason string, details wampmsg.Options) error {
	p.mu.Lock()
	msg := wampmsg.Abort{Reason: reason, Details: details}
	p.mu.Unlock()
	if err := p.sender.SendMessage(msg); err != nil {
		return err
	}
	p.mu.Lock()
	p.state = StateFailed
	p.mu.Unlock()
	p.listener.OnPeerAbort(reason, false)
	return nil
}

// Disconnect resets a failed or closed peer back to disconnected so a
// new Connect attempt can be made.
func (p *Peer) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateFailed && p.state != StateClosed {
		return fmt.Errorf("session: cannot disconnect from state %s", p.state)
	}
	p.state = StateDisconnected
	p.session = 0
	p.details = nil
	return nil
}
