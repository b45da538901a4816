// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"encoding/binary"
	"time"

	"github.com/wampgo/wampcore/werr"
)

// PingPayloadLen is the fixed size of a ping/pong frame payload: an
// 8-byte base id followed by an 8-byte sequence number, both big-endian.
const PingPayloadLen = 16

// PingFrame builds successive ping payloads sharing a random base id, so a
// peer can tell pings from distinct connections apart even if sequence
// numbers collide. The first call to Next always returns a frame, per
// spec.md §6 ("the first tick always pings").
type PingFrame struct {
	baseID uint64
	seq    uint64
	sent   bool
}

// NewPingFrame returns a PingFrame seeded with baseID, which callers
// should derive from a cryptographically random source.
func NewPingFrame(baseID uint64) *PingFrame {
	return &PingFrame{baseID: baseID}
}

// Count returns the number of frames produced so far. A pinger that has
// never ticked reports zero and is not required to validate the pong.
func (f *PingFrame) Count() uint64 {
	if !f.sent {
		return 0
	}
	return f.seq + 1
}

// Next advances the sequence number and serializes the resulting frame.
func (f *PingFrame) Next() [PingPayloadLen]byte {
	if f.sent {
		f.seq++
	}
	f.sent = true
	var b [PingPayloadLen]byte
	binary.BigEndian.PutUint64(b[0:8], f.baseID)
	binary.BigEndian.PutUint64(b[8:16], f.seq)
	return b
}

// Matches reports whether payload is the pong reply to the most recently
// produced ping frame.
func (f *PingFrame) Matches(payload []byte) bool {
	if f.seq == 0 && !f.sent {
		return false
	}
	if len(payload) != PingPayloadLen {
		return false
	}
	var b [PingPayloadLen]byte
	binary.BigEndian.PutUint64(b[0:8], f.baseID)
	binary.BigEndian.PutUint64(b[8:16], f.seq)
	return string(b[:]) == string(payload)
}

// PingEvent is delivered by [Pinger] to its handler on every tick.
type PingEvent struct {
	// Frame is the outgoing ping payload to send, set when Err is nil.
	Frame [PingPayloadLen]byte
	// Err is set when the interval elapsed without a matching pong, or
	// the pinger's timer failed.
	Err error
}

// Pinger drives a fixed-interval WAMP heartbeat, modeled on the
// reference implementation's Pinger: each tick emits a fresh ping frame,
// unless the previous frame's pong never arrived, in which case it
// reports heartbeatTimeout and stops. Pinger is not safe for concurrent
// use; Pong and Stop are expected to be called from the same goroutine
// that owns the transport's read loop, as the reference implementation
// assumes a single-threaded strand.
type Pinger struct {
	interval    time.Duration
	timer       *time.Timer
	frame       *PingFrame
	gotPong     bool
	handler     func(PingEvent)
	stopped     bool
	matchingSeq uint64
}

// NewPinger constructs a Pinger that ticks every interval and identifies
// its frames with baseID.
func NewPinger(interval time.Duration, baseID uint64) *Pinger {
	return &Pinger{
		interval: interval,
		frame:    NewPingFrame(baseID),
	}
}

// Start begins the heartbeat schedule, invoking handler on every tick and
// on heartbeat timeout. Start is a no-op if interval is zero, matching
// spec.md §6's "a zero interval disables the pinger" rule.
func (p *Pinger) Start(handler func(PingEvent)) {
	p.handler = handler
	p.stopped = false
	if p.interval <= 0 {
		return
	}
	p.scheduleNext()
}

// Stop cancels the pending tick and detaches the handler.
func (p *Pinger) Stop() {
	p.stopped = true
	p.handler = nil
	if p.timer != nil {
		p.timer.Stop()
	}
}

// Pong records an inbound pong payload, recognizing it as the match for
// the outstanding ping frame if the bytes are identical.
func (p *Pinger) Pong(payload []byte) {
	if p.frame.Matches(payload) {
		p.gotPong = true
	}
}

func (p *Pinger) scheduleNext() {
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *Pinger) tick() {
	if p.stopped || p.handler == nil {
		return
	}
	if p.frame.Count() > 0 && !p.gotPong {
		p.handler(PingEvent{Err: werr.TransportErrcHeartbeatTimeout})
		return
	}
	p.gotPong = false
	frame := p.frame.Next()
	p.handler(PingEvent{Frame: frame})
	p.scheduleNext()
}
