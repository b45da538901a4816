// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"time"

	"github.com/wampgo/wampcore/werr"
	"github.com/wampgo/wampcore/wireframe"
)

// Frame is a single outbound unit of work for a [Queue]: a payload with
// its raw-socket frame kind, and a poisoned flag marking "send this, then
// shut down."
type Frame struct {
	Kind     wireframe.FrameKind
	Payload  []byte
	poisoned bool
}

// Poison marks f as the last frame to send before a graceful shutdown, per
// spec.md §6 ("poisoned-frame-to-front semantics").
func (f *Frame) Poison() { f.poisoned = true }

// Poisoned reports whether f is poisoned.
func (f *Frame) Poisoned() bool { return f.poisoned }

// Stream is the minimal duplex byte-stream a [Queue] drives. A Stream
// implementation owns the actual socket or websocket connection and its
// wire framing; Queue owns outbound ordering, inbound dispatch, and
// timeout bookkeeping.
type Stream interface {
	// IsOpen reports whether the underlying connection is still usable.
	IsOpen() bool
	// WriteFrame blocks until kind/payload has been written in full, or
	// an error occurs. Queue never calls WriteFrame concurrently with
	// itself.
	WriteFrame(kind wireframe.FrameKind, payload []byte) error
	// ReadFrame blocks until one complete inbound frame has been read,
	// or an error occurs. The returned kind tells Queue whether payload
	// is a WAMP message to dispatch or a ping/pong control frame to
	// handle itself.
	ReadFrame() (wireframe.FrameKind, []byte, error)
	// Shutdown initiates a graceful close, notifying reason as the
	// close cause.
	Shutdown(reason error) error
	// Close immediately tears down the connection.
	Close() error
}

// PongObserver is implemented by a [Stream] whose transport delivers
// inbound pong frames out-of-band from ReadFrame rather than as a
// distinguishable wireframe.FrameKind — WebSocket control frames, for
// example, never surface from ReadMessage. Queue calls ObservePongs
// once at Start, from the same goroutine that will later drive
// ReadFrame, so onPong is always invoked on that goroutine too.
type PongObserver interface {
	ObservePongs(onPong func(payload []byte))
}

// Bouncer enforces a linger timeout while a [Queue] is shutting down,
// mirroring the reference implementation's AsyncTimerBouncer (client
// side, one-shot timer) and PollingBouncer (server side, checked on each
// [ServerMonitor] tick).
type Bouncer interface {
	Enabled() bool
	Start(onTimeout func())
	Cancel()
	Monitor(now time.Time)
}

// AsyncTimerBouncer is a client-side [Bouncer] backed by a one-shot
// timer that fires once after Timeout elapses.
type AsyncTimerBouncer struct {
	Timeout time.Duration
	timer   *time.Timer
}

// NewAsyncTimerBouncer returns a Bouncer that fires after timeout. A
// zero or negative timeout disables it, per spec.md §6.
func NewAsyncTimerBouncer(timeout time.Duration) *AsyncTimerBouncer {
	return &AsyncTimerBouncer{Timeout: timeout}
}

func (b *AsyncTimerBouncer) Enabled() bool { return b.Timeout > 0 }

func (b *AsyncTimerBouncer) Start(onTimeout func()) {
	if !b.Enabled() {
		return
	}
	b.timer = time.AfterFunc(b.Timeout, onTimeout)
}

func (b *AsyncTimerBouncer) Cancel() {
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (b *AsyncTimerBouncer) Monitor(time.Time) {}

// PollingBouncer is a server-side [Bouncer] checked on every
// [ServerMonitor] tick rather than owning its own timer, so the server's
// polling loop stays allocation-free.
type PollingBouncer struct {
	Timeout  time.Duration
	deadline time.Time
	handler  func()
}

// NewPollingBouncer returns a Bouncer that expects Monitor to be called
// periodically. A zero or negative timeout disables it.
func NewPollingBouncer(timeout time.Duration) *PollingBouncer {
	return &PollingBouncer{Timeout: timeout}
}

func (b *PollingBouncer) Enabled() bool { return b.Timeout > 0 }

func (b *PollingBouncer) Start(onTimeout func()) {
	if !b.Enabled() {
		return
	}
	b.handler = onTimeout
	b.deadline = time.Now().Add(b.Timeout)
}

func (b *PollingBouncer) Monitor(now time.Time) {
	if b.handler == nil || now.Before(b.deadline) {
		return
	}
	handler := b.handler
	b.reset()
	handler()
}

func (b *PollingBouncer) Cancel() { b.reset() }

func (b *PollingBouncer) reset() {
	b.handler = nil
	b.deadline = time.Time{}
}

// Queue provides inbound message dispatch and outbound message queueing
// for a single transport connection, per spec.md §6. All state owned by
// Queue is only ever touched from its single actor goroutine, modeling
// the reference implementation's single-threaded strand: Send, Abort,
// Shutdown, Close, Fail, and MonitorTick all hand their work to that
// goroutine via a channel of closures rather than taking a lock.
type Queue struct {
	stream         Stream
	bouncer        Bouncer
	monitor        *ServerMonitor
	pinger         *Pinger
	txPayloadLimit int

	commands chan func()
	done     chan struct{}

	txQueue         []Frame
	isTransmitting  bool
	rxHandler       func([]byte, error)
	txErrorHandler  func(error)
	shutdownHandler func(error)
}

// NewQueue constructs a Queue around stream, using bouncer to bound
// graceful shutdown. txPayloadLimit is recorded on the Queue, but Send
// and Abort do not check payload sizes against it; a Stream such as
// rawsocket.Conn rejects oversized payloads in WriteFrame.
// monitor may be nil for client transports, which have no server-side
// polling deadlines. pinger may be nil to disable the heartbeat
// entirely, matching a zero-interval [Pinger].
func NewQueue(stream Stream, bouncer Bouncer, txPayloadLimit int, monitor *ServerMonitor, pinger *Pinger) *Queue {
	return &Queue{
		stream:         stream,
		bouncer:        bouncer,
		monitor:        monitor,
		pinger:         pinger,
		txPayloadLimit: txPayloadLimit,
		commands:       make(chan func(), 16),
		done:           make(chan struct{}),
	}
}

// Start launches the actor goroutine and the receive loop, delivering
// inbound payloads to rxHandler and write failures to txErrorHandler.
// rxHandler's error argument is non-nil exactly when the connection has
// failed and payload should be ignored. If pinger is set, its ticks are
// sent as ping frames and a heartbeat timeout fails the queue exactly
// like a read error.
func (q *Queue) Start(rxHandler func(payload []byte, err error), txErrorHandler func(error)) {
	q.rxHandler = rxHandler
	q.txErrorHandler = txErrorHandler
	if q.monitor != nil {
		q.monitor.Start(time.Now())
	}
	if observer, ok := q.stream.(PongObserver); ok {
		observer.ObservePongs(q.onPong)
	}
	if q.pinger != nil {
		q.pinger.Start(q.onPingEvent)
	}
	go q.run()
	go q.receiveLoop()
}

// onPingEvent is invoked by the Pinger's own timer goroutine, so it
// hands off to the actor goroutine rather than touching Queue state
// directly, the same way onLingerTimeout does for the bouncer.
func (q *Queue) onPingEvent(event PingEvent) {
	q.commands <- func() {
		if event.Err != nil {
			q.failLocked(event.Err)
			return
		}
		q.enqueue(Frame{Kind: wireframe.FrameKindPing, Payload: event.Frame[:]})
	}
}

// onPong is invoked by a [PongObserver] stream on the goroutine that
// drives ReadFrame, so it is handed off to the actor goroutine just
// like an inbound pong frame read directly off the wire.
func (q *Queue) onPong(payload []byte) {
	q.commands <- func() {
		if q.pinger != nil {
			q.pinger.Pong(payload)
		}
	}
}

// Send enqueues payload for transmission as kind, dropping it silently if
// the stream is already closed, matching the reference implementation's
// send().
func (q *Queue) Send(kind wireframe.FrameKind, payload []byte) {
	q.commands <- func() {
		if !q.stream.IsOpen() {
			return
		}
		q.enqueue(Frame{Kind: kind, Payload: payload})
	}
}

// Abort sends message as a poisoned frame jumping to the front of the
// queue, then shuts the connection down once it has been written,
// invoking handler with the shutdown outcome.
func (q *Queue) Abort(message []byte, handler func(error)) {
	q.commands <- func() {
		q.startBouncer()
		frame := Frame{Kind: wireframe.FrameKindWAMP, Payload: message}
		frame.Poison()
		q.shutdownHandler = handler
		q.txQueue = append([]Frame{frame}, q.txQueue...)
		q.transmit()
	}
}

// Shutdown discards any queued frames and initiates a graceful shutdown
// with reason, invoking handler with the outcome.
func (q *Queue) Shutdown(reason error, handler func(error)) {
	q.commands <- func() {
		q.shutdownHandler = handler
		q.halt()
		q.shutdownTransport(reason)
	}
}

// Close halts the queue (dropping queued frames and stopping the pinger)
// and closes the stream immediately. Close blocks until the actor has
// processed the request.
func (q *Queue) Close() {
	reply := make(chan struct{})
	q.commands <- func() {
		q.halt()
		_ = q.stream.Close()
		close(reply)
	}
	<-reply
	close(q.done)
}

// Fail halts the queue and reports err to the rx handler, as the
// reference implementation's fail() does on an unrecoverable read error.
func (q *Queue) Fail(err error) {
	q.commands <- func() {
		q.failLocked(err)
	}
}

// failLocked is Fail's body, callable directly from a closure already
// running on the actor goroutine (e.g. onPingEvent's heartbeat-timeout
// branch) without a redundant round-trip through q.commands.
func (q *Queue) failLocked(err error) {
	q.halt()
	if q.rxHandler != nil {
		handler := q.rxHandler
		q.rxHandler = nil
		handler(nil, err)
	}
}

// MonitorTick lets the bouncer observe the passage of time without
// owning a timer of its own. It does not call the server timeout
// monitor's Check.
func (q *Queue) MonitorTick(now time.Time) {
	q.commands <- func() {
		q.bouncer.Monitor(now)
	}
}

func (q *Queue) run() {
	for {
		select {
		case cmd := <-q.commands:
			cmd()
		case <-q.done:
			return
		}
	}
}

func (q *Queue) halt() {
	q.txErrorHandler = nil
	q.txQueue = nil
	if q.pinger != nil {
		q.pinger.Stop()
	}
}

func (q *Queue) enqueue(frame Frame) {
	q.txQueue = append(q.txQueue, frame)
	q.transmit()
}

func (q *Queue) transmit() {
	if !q.readyToTransmit() {
		return
	}
	frame := q.txQueue[0]
	q.txQueue = q.txQueue[1:]
	q.isTransmitting = true
	if q.monitor != nil {
		q.monitor.StartResponse(time.Now())
	}

	go func() {
		err := q.stream.WriteFrame(frame.Kind, frame.Payload)
		q.commands <- func() {
			q.onWriteDone(frame, err)
		}
	}()
}

func (q *Queue) onWriteDone(frame Frame, err error) {
	if q.monitor != nil {
		q.monitor.EndResponse(time.Now())
	}
	q.isTransmitting = false
	if err != nil {
		if q.txErrorHandler != nil {
			handler := q.txErrorHandler
			q.halt()
			handler(err)
		}
		return
	}
	if !frame.Poisoned() {
		q.transmit()
		return
	}
	if q.shutdownHandler != nil {
		q.shutdownTransport(nil)
	}
}

func (q *Queue) readyToTransmit() bool {
	return q.stream.IsOpen() && !q.isTransmitting && len(q.txQueue) > 0
}

func (q *Queue) startBouncer() {
	if !q.bouncer.Enabled() {
		return
	}
	q.bouncer.Start(func() {
		q.commands <- func() {
			q.onLingerTimeout()
		}
	})
}

func (q *Queue) onLingerTimeout() {
	q.notifyShutdown(werr.TransportErrcLingerTimeout)
	_ = q.stream.Close()
}

func (q *Queue) shutdownTransport(reason error) {
	q.startBouncer()
	go func() {
		err := q.stream.Shutdown(reason)
		q.commands <- func() {
			q.notifyShutdown(err)
		}
	}()
}

func (q *Queue) notifyShutdown(err error) {
	q.bouncer.Cancel()
	if q.shutdownHandler == nil {
		return
	}
	handler := q.shutdownHandler
	q.shutdownHandler = nil
	handler(err)
}

func (q *Queue) receiveLoop() {
	for {
		kind, payload, err := q.stream.ReadFrame()
		if err != nil {
			q.Fail(err)
			return
		}
		q.commands <- func() {
			q.dispatchInbound(kind, payload)
		}
	}
}

// dispatchInbound handles one inbound frame on the actor goroutine: a
// ping is answered with a pong carrying the same payload, a pong feeds
// the pinger's outstanding-ping tracking, and anything else is handed
// to rxHandler as a WAMP payload.
func (q *Queue) dispatchInbound(kind wireframe.FrameKind, payload []byte) {
	switch kind {
	case wireframe.FrameKindPing:
		q.enqueue(Frame{Kind: wireframe.FrameKindPong, Payload: payload})
	case wireframe.FrameKindPong:
		if q.pinger != nil {
			q.pinger.Pong(payload)
		}
	default:
		if q.rxHandler != nil {
			q.rxHandler(payload, nil)
		}
	}
}
