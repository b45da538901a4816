// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"math/rand/v2"
	"time"

	"github.com/wampgo/wampcore/debugflags"
	"github.com/wampgo/wampcore/werr"
)

// ProgressiveTimeout parameterizes a [ProgressiveDeadline]: a floor
// (Min), a ceiling (Max), and a byte-rate (Rate, bytes/second) that
// extends the floor toward the ceiling as bytes are transferred. Any
// field left at its zero value is unspecified and does not bound the
// deadline, per spec.md §4.D.
type ProgressiveTimeout struct {
	Min  time.Duration
	Max  time.Duration
	Rate uint64
}

func (t ProgressiveTimeout) minSpecified() bool { return t.Min > 0 }
func (t ProgressiveTimeout) maxSpecified() bool { return t.Max > 0 }

// ProgressiveDeadline computes a minimum deadline extended by a
// byte-rate allowance up to a maximum, per spec.md §4.D: on Start the
// deadline is t0+min bounded by t0+max; each Update banks
// bytesTransferred/rate seconds of additional headroom, capped at the
// max deadline; Reset returns the deadline to +∞ (never due).
type ProgressiveDeadline struct {
	deadline    time.Time
	maxDeadline time.Time
	bytesBanked uint64
}

// NewProgressiveDeadline returns a deadline that is not yet due (Reset
// state).
func NewProgressiveDeadline() *ProgressiveDeadline {
	d := &ProgressiveDeadline{}
	d.Reset()
	return d
}

// Reset returns the deadline to +∞, matching the reference
// implementation's reset().
func (d *ProgressiveDeadline) Reset() {
	d.deadline = timeMax
	d.maxDeadline = timeMax
	d.bytesBanked = 0
}

// Start begins the deadline at now, applying timeout's min/max bounds.
func (d *ProgressiveDeadline) Start(timeout ProgressiveTimeout, now time.Time) {
	if timeout.maxSpecified() {
		d.maxDeadline = now.Add(timeout.Max)
	} else {
		d.maxDeadline = timeMax
	}
	if timeout.minSpecified() {
		d.deadline = now.Add(timeout.Min)
		if d.deadline.After(d.maxDeadline) {
			d.deadline = d.maxDeadline
		}
	} else {
		d.deadline = d.maxDeadline
	}
}

// Update banks bytesTransferred against timeout's rate and extends the
// deadline by the resulting whole seconds of headroom, never exceeding
// the max deadline.
func (d *ProgressiveDeadline) Update(timeout ProgressiveTimeout, bytesTransferred uint64) {
	if d.deadline.Equal(d.maxDeadline) {
		return
	}
	if !timeout.minSpecified() || timeout.Rate == 0 {
		return
	}
	n := d.bytesBanked + bytesTransferred
	secs := n / timeout.Rate
	d.bytesBanked = n - secs*timeout.Rate

	headroom := int64(d.maxDeadline.Sub(d.deadline) / time.Second)
	if headroom < 0 || secs > uint64(headroom) {
		d.deadline = d.maxDeadline
	} else {
		d.deadline = d.deadline.Add(time.Duration(secs) * time.Second)
	}
}

// Due returns the current deadline. A deadline in Reset state returns a
// time far enough in the future to never be exceeded in practice.
func (d *ProgressiveDeadline) Due() time.Time { return d.deadline }

// jitter perturbs d by up to ±deadlinejitter's configured fraction, per
// SPEC_FULL.md §4.Q, so that many connections armed at the same instant
// (e.g. right after a restart) don't all time out in lockstep.
func jitter(d time.Duration) time.Duration {
	frac, ok := debugflags.DeadlineJitter()
	if !ok {
		return d
	}
	return jitterFrac(d, frac)
}

// jitterFrac perturbs d by a uniformly random amount within ±frac.
func jitterFrac(d time.Duration, frac float64) time.Duration {
	if d <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * frac
	return d + time.Duration(float64(d)*spread)
}

// timeMax stands in for the reference implementation's
// Timepoint::max(): the zero time shifted so that Sub arithmetic never
// overflows, while still comparing greater than any real deadline this
// process will compute.
var timeMax = time.Unix(1<<62, 0)

// ServerLimits configures a [ServerMonitor]'s deadlines, per spec.md
// §4.D: fixed handshake/header/linger timeouts, progressive body/
// response timeouts, and an idle watchdog reset on any activity.
type ServerLimits struct {
	HandshakeTimeout time.Duration
	HeaderTimeout    time.Duration
	BodyTimeout      ProgressiveTimeout
	ResponseTimeout  ProgressiveTimeout
	LingerTimeout    time.Duration
	IdleTimeout      time.Duration
}

// ServerMonitor composes the handshake, header, body, response, linger,
// and idle deadlines of a single server-side connection. It is polled
// via Check rather than timer-driven, per spec.md §4.D, so that the hot
// path of reading/writing frames never allocates a timer.
type ServerMonitor struct {
	limits ServerLimits

	handshakeDeadline time.Time
	headerDeadline    time.Time
	bodyDeadline      *ProgressiveDeadline
	responseDeadline  *ProgressiveDeadline
	lingerDeadline    time.Time
	activityDeadline  time.Time
}

// NewServerMonitor constructs a monitor bound to limits. Call Start once
// the connection is accepted.
func NewServerMonitor(limits ServerLimits) *ServerMonitor {
	return &ServerMonitor{
		limits:            limits,
		handshakeDeadline: timeMax,
		headerDeadline:    timeMax,
		bodyDeadline:      NewProgressiveDeadline(),
		responseDeadline:  NewProgressiveDeadline(),
		lingerDeadline:    timeMax,
	}
}

// Start arms the idle watchdog and, if configured, the handshake
// deadline.
func (m *ServerMonitor) Start(now time.Time) {
	if m.limits.HandshakeTimeout > 0 {
		m.handshakeDeadline = now.Add(jitter(m.limits.HandshakeTimeout))
	} else {
		m.handshakeDeadline = timeMax
	}
	m.bumpActivity(now)
}

// EndHandshake disarms the handshake deadline once the handshake
// completes.
func (m *ServerMonitor) EndHandshake(now time.Time) {
	m.handshakeDeadline = timeMax
	m.bumpActivity(now)
}

// StartHeader arms the fixed header-read deadline.
func (m *ServerMonitor) StartHeader(now time.Time) {
	if m.limits.HeaderTimeout > 0 {
		m.headerDeadline = now.Add(jitter(m.limits.HeaderTimeout))
	} else {
		m.headerDeadline = timeMax
	}
	m.bumpActivity(now)
}

// EndHeader disarms the header deadline.
func (m *ServerMonitor) EndHeader(now time.Time) {
	m.headerDeadline = timeMax
	m.bumpActivity(now)
}

// StartBody arms the progressive body-read deadline.
func (m *ServerMonitor) StartBody(now time.Time) {
	m.bodyDeadline.Start(m.limits.BodyTimeout, now)
	m.bumpActivity(now)
}

// UpdateBody banks bytesRead against the body deadline's rate.
func (m *ServerMonitor) UpdateBody(now time.Time, bytesRead uint64) {
	m.bodyDeadline.Update(m.limits.BodyTimeout, bytesRead)
	m.bumpActivity(now)
}

// EndBody disarms the body deadline.
func (m *ServerMonitor) EndBody(now time.Time) {
	m.bodyDeadline.Reset()
	m.bumpActivity(now)
}

// StartResponse arms the progressive response-write deadline.
func (m *ServerMonitor) StartResponse(now time.Time) {
	m.responseDeadline.Start(m.limits.ResponseTimeout, now)
	m.bumpActivity(now)
}

// UpdateResponse banks bytesWritten against the response deadline's
// rate.
func (m *ServerMonitor) UpdateResponse(now time.Time, bytesWritten uint64) {
	m.responseDeadline.Update(m.limits.ResponseTimeout, bytesWritten)
	m.bumpActivity(now)
}

// EndResponse disarms the response deadline.
func (m *ServerMonitor) EndResponse(now time.Time) {
	m.responseDeadline.Reset()
	m.bumpActivity(now)
}

// StartLinger arms the fixed linger deadline for graceful shutdown.
func (m *ServerMonitor) StartLinger(now time.Time) {
	if m.limits.LingerTimeout > 0 {
		m.lingerDeadline = now.Add(jitter(m.limits.LingerTimeout))
	} else {
		m.lingerDeadline = timeMax
	}
}

func (m *ServerMonitor) bumpActivity(now time.Time) {
	if m.limits.IdleTimeout > 0 {
		m.activityDeadline = now.Add(m.limits.IdleTimeout)
	}
}

// Check returns the first exceeded deadline mapped to its transport
// error, or nil if none are due at now. Checked in the reference
// implementation's order: idle, then handshake, then header, then body,
// then response, then linger.
func (m *ServerMonitor) Check(now time.Time) error {
	switch {
	case m.activityDeadline != (time.Time{}) && now.After(m.activityDeadline):
		return werr.TransportErrcIdleTimeout
	case now.After(m.handshakeDeadline):
		return werr.TransportErrcHandshakeTimeout
	case now.After(m.headerDeadline):
		return werr.TransportErrcHeaderTimeout
	case now.After(m.bodyDeadline.Due()):
		return werr.TransportErrcBodyTimeout
	case now.After(m.responseDeadline.Due()):
		return werr.TransportErrcWriteTimeout
	case now.After(m.lingerDeadline):
		return werr.TransportErrcLingerTimeout
	default:
		return nil
	}
}
