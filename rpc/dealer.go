package rpc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wampgo/wampcore/schemacheck"
	"github.com/wampgo/wampcore/wampmsg"
	"github.com/wampgo/wampcore/werr"
)

// Sender delivers one WAMP message to the session identified by
// sessionID. The dealer never writes to a transport directly: it hands
// messages to whatever routes sessions to their peers.
type Sender interface {
	Send(sessionID int64, msg wampmsg.Message) error
}

type callerKey struct {
	session   int64
	requestID int64
}

// invocation is the dealer's joined view of a call record and its
// invocation record (SPEC_FULL.md §3): one call in flight between a
// caller and a callee.
type invocation struct {
	invocationID   int64
	callerSession  int64
	callRequestID  int64
	calleeSession  int64
	registrationID int64
	cancelMode     wampmsg.CancelMode
	replied        bool // a RESULT or ERROR has already reached the caller
	timer          *time.Timer

	// Streaming channel bookkeeping, per SPEC_FULL.md §4.J.4. chunkOpen
	// is true while the caller-to-callee direction is still accepting
	// further progressive CALL chunks (i.e. the caller has not yet sent
	// a final, non-progressive one).
	chunkOpen bool
	// expectsInvitation mirrors the registration's ExpectsInvitation at
	// the time the invocation was created: while true and no RSVP has
	// arrived yet, further caller chunks are held back rather than
	// forwarded.
	expectsInvitation bool
	rsvpReceived      bool
	pendingChunks     []wampmsg.Call
}

// Dealer implements the router side of SPEC_FULL.md §4.J: routing CALL
// to the matching registration's callee as INVOCATION, correlating
// RESULT/ERROR/YIELD, and applying the three cancellation modes.
type Dealer struct {
	registrations *RegistrationTable
	sender        Sender
	schemas       *schemacheck.Cache

	mu               sync.Mutex
	byCaller         map[callerKey]*invocation
	byInvocation     map[int64]*invocation
	nextInvocationID int64
}

// NewDealer constructs a Dealer routing calls against registrations and
// delivering messages through sender.
func NewDealer(registrations *RegistrationTable, sender Sender) *Dealer {
	return &Dealer{
		registrations: registrations,
		sender:        sender,
		schemas:       schemacheck.NewCache(),
		byCaller:      make(map[callerKey]*invocation),
		byInvocation:  make(map[int64]*invocation),
	}
}

func (d *Dealer) allocInvocationID() int64 {
	return atomic.AddInt64(&d.nextInvocationID, 1)
}

// Call handles an inbound CALL from callerSession, per SPEC_FULL.md
// §4.J.1 and §4.J.3 (caller timeout) / §4.J.5 (disclosure). A second (or
// later) CALL sharing the same request id is a progressive
// caller-to-callee chunk (§4.J.4), not a new call.
func (d *Dealer) Call(callerSession int64, msg wampmsg.Call) {
	d.mu.Lock()
	existing, isChunk := d.byCaller[callerKey{callerSession, msg.Request}]
	d.mu.Unlock()
	if isChunk {
		d.forwardChunk(existing, msg)
		return
	}

	reg, ok := d.registrations.Match(msg.Procedure)
	if !ok {
		d.sendError(callerSession, wampmsg.TypeCall, msg.Request, werr.WampErrcNoSuchProcedure)
		return
	}

	if err := d.schemas.ValidateArgs(reg.ArgSchema, msg.Args, msg.Kwargs); err != nil {
		d.sendError(callerSession, wampmsg.TypeCall, msg.Request, werr.WampErrcInvalidArgument)
		return
	}

	inv := &invocation{
		invocationID:      d.allocInvocationID(),
		callerSession:     callerSession,
		callRequestID:     msg.Request,
		calleeSession:     reg.CalleeSessionID,
		registrationID:    reg.ID,
		chunkOpen:         wampmsg.Progressive(msg.Options),
		expectsInvitation: reg.ExpectsInvitation,
	}

	d.mu.Lock()
	d.byCaller[callerKey{callerSession, msg.Request}] = inv
	d.byInvocation[inv.invocationID] = inv
	d.mu.Unlock()

	details := wampmsg.Options{}
	if discloseMe(msg.Options) {
		details["caller"] = callerSession
	}
	if wampmsg.Progressive(msg.Options) {
		details["progress"] = true
	}

	invocationMsg := wampmsg.Invocation{
		Request:      inv.invocationID,
		Registration: reg.ID,
		Details:      details,
		Args:         msg.Args,
		Kwargs:       msg.Kwargs,
	}
	_ = d.sender.Send(reg.CalleeSessionID, invocationMsg)

	if timeoutMs, ok := callTimeoutMillis(msg.Options); ok && timeoutMs > 0 {
		d.armCallerTimeout(inv, time.Duration(timeoutMs)*time.Millisecond)
	}
}

// forwardChunk handles a progressive CALL chunk for an already-open
// invocation. If the registration expects an invitation (an RSVP or
// error from the callee before any chunks may flow) and the callee has
// not yet sent one, the chunk is queued rather than forwarded, per
// SPEC_FULL.md §4.J.4.
func (d *Dealer) forwardChunk(inv *invocation, msg wampmsg.Call) {
	d.mu.Lock()
	if !inv.chunkOpen || inv.replied {
		d.mu.Unlock()
		return
	}
	final := !wampmsg.Progressive(msg.Options)
	inv.chunkOpen = !final
	if inv.expectsInvitation && !inv.rsvpReceived {
		inv.pendingChunks = append(inv.pendingChunks, msg)
		d.mu.Unlock()
		return
	}
	calleeSession, invocationID, registrationID := inv.calleeSession, inv.invocationID, inv.registrationID
	d.mu.Unlock()
	d.sendInvocationChunk(calleeSession, invocationID, registrationID, msg.Args, msg.Kwargs, !final)
}

func (d *Dealer) sendInvocationChunk(calleeSession, invocationID, registrationID int64, args wampmsg.Args, kwargs wampmsg.Kwargs, progressive bool) {
	details := wampmsg.Options{}
	if progressive {
		details["progress"] = true
	}
	_ = d.sender.Send(calleeSession, wampmsg.Invocation{
		Request:      invocationID,
		Registration: registrationID,
		Details:      details,
		Args:         args,
		Kwargs:       kwargs,
	})
}

func discloseMe(opts wampmsg.Options) bool {
	v, ok := opts["disclose_me"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func callTimeoutMillis(opts wampmsg.Options) (int64, bool) {
	v, ok := opts["timeout"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// armCallerTimeout starts a timer that, on expiry, cancels inv in
// killnowait mode, per SPEC_FULL.md §4.J.3: "on expiry, a cancel is
// issued with killnowait mode, and the caller observes cancelled."
func (d *Dealer) armCallerTimeout(inv *invocation, timeout time.Duration) {
	inv.timer = time.AfterFunc(timeout, func() {
		d.Cancel(inv.callerSession, wampmsg.Cancel{
			Request: inv.callRequestID,
			Options: wampmsg.Options{"mode": string(wampmsg.CancelModeKillNoWait)},
		})
	})
}

// Cancel handles an inbound CANCEL from callerSession, per SPEC_FULL.md
// §4.J.2. A cancel for an unknown invocation is silently dropped.
func (d *Dealer) Cancel(callerSession int64, msg wampmsg.Cancel) {
	d.mu.Lock()
	inv, ok := d.byCaller[callerKey{callerSession, msg.Request}]
	if !ok || inv.replied {
		d.mu.Unlock()
		return
	}
	mode := cancelMode(msg.Options)
	inv.cancelMode = mode
	d.mu.Unlock()

	switch mode {
	case wampmsg.CancelModeSkip:
		// The callee is never notified; its eventual YIELD will find no
		// invocation record and be dropped.
		d.completeWithCancelled(inv)
	case wampmsg.CancelModeKillNoWait:
		_ = d.sender.Send(inv.calleeSession, wampmsg.Interrupt{
			Request: inv.invocationID,
			Options: wampmsg.Options{"mode": string(wampmsg.CancelModeKillNoWait)},
		})
		d.completeWithCancelled(inv)
	case wampmsg.CancelModeKill:
		_ = d.sender.Send(inv.calleeSession, wampmsg.Interrupt{
			Request: inv.invocationID,
			Options: wampmsg.Options{"mode": string(wampmsg.CancelModeKill)},
		})
		// No reply to the caller yet: whichever of ERROR/RESULT arrives
		// first from the callee is forwarded by HandleYield/HandleError.
	}
}

func cancelMode(opts wampmsg.Options) wampmsg.CancelMode {
	v, ok := opts["mode"]
	if !ok {
		return wampmsg.CancelModeKillNoWait
	}
	s, _ := v.(string)
	switch wampmsg.CancelMode(s) {
	case wampmsg.CancelModeKill, wampmsg.CancelModeSkip:
		return wampmsg.CancelMode(s)
	default:
		return wampmsg.CancelModeKillNoWait
	}
}

func (d *Dealer) completeWithCancelled(inv *invocation) {
	if !d.finish(inv) {
		return
	}
	d.sendError(inv.callerSession, wampmsg.TypeCall, inv.callRequestID, werr.WampErrcCancelled)
	d.cleanup(inv)
}

// HandleYield processes a YIELD from calleeSession, forwarding a final
// or progressive RESULT to the caller, per SPEC_FULL.md §4.J.4.
func (d *Dealer) HandleYield(calleeSession int64, msg wampmsg.Yield) {
	d.mu.Lock()
	inv, ok := d.byInvocation[msg.Request]
	if !ok {
		d.mu.Unlock()
		return
	}
	if inv.replied {
		d.mu.Unlock()
		return
	}
	progressive := wampmsg.Progressive(msg.Options)
	registrationID := inv.registrationID
	callerSession, callRequestID := inv.callerSession, inv.callRequestID
	d.mu.Unlock()

	if reg, ok := d.registrations.Lookup(registrationID); ok {
		if err := d.schemas.ValidateResult(reg.ResultSchema, msg.Args, msg.Kwargs); err != nil {
			d.sendError(callerSession, wampmsg.TypeCall, callRequestID, werr.WampErrcInvalidArgument)
			d.cleanup(inv)
			return
		}
	}

	d.mu.Lock()
	isRSVP := inv.expectsInvitation && !inv.rsvpReceived
	if isRSVP {
		inv.rsvpReceived = true
	}
	if !progressive {
		inv.replied = true
	}
	d.mu.Unlock()

	result := wampmsg.Result{
		Request: callRequestID,
		Details: msg.Options,
		Args:    msg.Args,
		Kwargs:  msg.Kwargs,
	}
	_ = d.sender.Send(callerSession, result)

	if isRSVP {
		d.flushPendingChunks(inv)
	}

	if !progressive {
		d.cleanup(inv)
	}
}

// flushPendingChunks forwards any caller chunks queued while a stream
// registration's RSVP was outstanding, per SPEC_FULL.md §4.J.4's
// invitation_expected gating.
func (d *Dealer) flushPendingChunks(inv *invocation) {
	d.mu.Lock()
	queued := inv.pendingChunks
	inv.pendingChunks = nil
	calleeSession, invocationID, registrationID := inv.calleeSession, inv.invocationID, inv.registrationID
	d.mu.Unlock()

	for _, chunk := range queued {
		d.sendInvocationChunk(calleeSession, invocationID, registrationID, chunk.Args, chunk.Kwargs, wampmsg.Progressive(chunk.Options))
	}
}

// HandleError processes an ERROR reply from calleeSession to an
// INVOCATION, forwarding it to the caller unless the invocation's reply
// has already been claimed by a kill-mode race or the invocation was
// already cancelled.
func (d *Dealer) HandleError(calleeSession int64, msg wampmsg.Error) {
	if msg.RequestType != wampmsg.TypeInvocation {
		return
	}
	d.mu.Lock()
	inv, ok := d.byInvocation[msg.Request]
	if !ok {
		d.mu.Unlock()
		return
	}
	if inv.replied {
		d.mu.Unlock()
		return
	}
	inv.replied = true
	callerSession, callRequestID := inv.callerSession, inv.callRequestID
	d.mu.Unlock()

	_ = d.sender.Send(callerSession, wampmsg.Error{
		RequestType: wampmsg.TypeCall,
		Request:     callRequestID,
		Details:     msg.Details,
		Reason:      msg.Reason,
		Args:        msg.Args,
		Kwargs:      msg.Kwargs,
	})
	d.cleanup(inv)
}

// finish marks inv as replied, returning false if another path already
// claimed the reply (e.g. the callee's answer raced a kill-mode
// cancellation).
func (d *Dealer) finish(inv *invocation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if inv.replied {
		return false
	}
	inv.replied = true
	return true
}

// AbortSession tears down every trace of sessionID in the dealer, per
// SPEC_FULL.md §4.J.4's departing-session rows: its registrations stop
// matching future calls, any invocation where it was the callee is
// failed back to the caller with no_such_session, and any invocation
// where it was only the caller is dropped with no reply sent, since
// there is no one left to receive one.
func (d *Dealer) AbortSession(sessionID int64) {
	d.registrations.UnregisterSession(sessionID)

	d.mu.Lock()
	var asCallee, asCaller []*invocation
	for _, inv := range d.byInvocation {
		switch sessionID {
		case inv.calleeSession:
			asCallee = append(asCallee, inv)
		case inv.callerSession:
			asCaller = append(asCaller, inv)
		}
	}
	d.mu.Unlock()

	for _, inv := range asCallee {
		if !d.finish(inv) {
			continue
		}
		d.sendError(inv.callerSession, wampmsg.TypeCall, inv.callRequestID, werr.WampErrcNoSuchSession)
		d.cleanup(inv)
	}
	for _, inv := range asCaller {
		if !d.finish(inv) {
			continue
		}
		d.cleanup(inv)
	}
}

func (d *Dealer) cleanup(inv *invocation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if inv.timer != nil {
		inv.timer.Stop()
	}
	delete(d.byCaller, callerKey{inv.callerSession, inv.callRequestID})
	delete(d.byInvocation, inv.invocationID)
}

func (d *Dealer) sendError(sessionID int64, requestType wampmsg.Type, requestID int64, errc werr.WampErrc) {
	_ = d.sender.Send(sessionID, wampmsg.Error{
		RequestType: requestType,
		Request:     requestID,
		Details:     wampmsg.Options{},
		Reason:      errc.URI(),
	})
}
