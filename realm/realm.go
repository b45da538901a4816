// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package realm owns one router-side realm: its session membership, its
// procedure registrations, and its subscriptions, per spec.md §3's Data
// Model ("Realm. { uri, membership: map session_id → session_ref,
// pub_sub_state, rpc_state }").
package realm

import (
	"sync"

	"github.com/wampgo/wampcore/pubsub"
	"github.com/wampgo/wampcore/rpc"
	"github.com/wampgo/wampcore/wampmsg"
)

// Sender delivers one WAMP message to the session identified by
// sessionID. Realm, Dealer, and Broker share the same sessionID
// addressing space, so one Sender implementation backs all three.
type Sender interface {
	Send(sessionID int64, msg wampmsg.Message) error
}

// Member is a realm's view of one joined session.
type Member struct {
	SessionID int64
	AuthID    string
	AuthRole  string
}

// Realm is a namespace for registrations, subscriptions, and sessions on
// a router (spec.md §9 GLOSSARY). All mutation of its registration and
// subscription tables happens through the Dealer and Broker it owns;
// Realm itself only tracks membership.
type Realm struct {
	URI string

	Dealer *rpc.Dealer
	Broker *pubsub.Broker

	registrations *rpc.RegistrationTable
	subscriptions *pubsub.Table

	mu      sync.Mutex
	members map[int64]Member
}

// New constructs an empty realm named uri, wiring its dealer and broker
// to deliver messages through sender.
func New(uri string, sender Sender) *Realm {
	registrations := rpc.NewRegistrationTable()
	subscriptions := pubsub.NewTable()
	return &Realm{
		URI:           uri,
		registrations: registrations,
		subscriptions: subscriptions,
		Dealer:        rpc.NewDealer(registrations, dealerSenderAdapter{sender}),
		Broker:        pubsub.NewBroker(subscriptions, pubsubSenderAdapter{sender}),
		members:       make(map[int64]Member),
	}
}

// dealerSenderAdapter and pubsubSenderAdapter exist because rpc.Sender
// and pubsub.Sender are structurally identical but distinct types (each
// package defines its own narrow collaborator interface rather than
// depending on a shared one), matching the teacher's per-package
// interface-at-the-point-of-use convention.
type dealerSenderAdapter struct{ Sender }
type pubsubSenderAdapter struct{ Sender }

// Join admits sessionID to the realm's membership.
func (r *Realm) Join(member Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[member.SessionID] = member
}

// Leave removes sessionID from the realm's membership and unregisters
// every registration/subscription it owned, so a departed session's
// procedures and topics stop matching future calls and publications.
// Per SPEC_FULL.md §4.J.4, an in-flight invocation where sessionID was
// the callee is failed back to its caller with no_such_session; one
// where sessionID was only the caller is simply abandoned.
func (r *Realm) Leave(sessionID int64) {
	r.mu.Lock()
	delete(r.members, sessionID)
	r.mu.Unlock()

	r.Dealer.AbortSession(sessionID)
	r.subscriptions.UnsubscribeSession(sessionID)
}

// Member reports the membership record for sessionID, if joined.
func (r *Realm) Member(sessionID int64) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sessionID]
	return m, ok
}

// MemberCount reports the number of sessions currently joined.
func (r *Realm) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Subscriber builds a pubsub.Subscriber view of sessionID's membership,
// or the zero value if sessionID has not joined.
func (r *Realm) Subscriber(sessionID int64) pubsub.Subscriber {
	m, _ := r.Member(sessionID)
	return pubsub.Subscriber{SessionID: m.SessionID, AuthID: m.AuthID, AuthRole: m.AuthRole}
}

// Registrations exposes the realm's registration table for router-level
// REGISTER/UNREGISTER handling.
func (r *Realm) Registrations() *rpc.RegistrationTable { return r.registrations }

// Subscriptions exposes the realm's subscription table for router-level
// SUBSCRIBE/UNSUBSCRIBE handling.
func (r *Realm) Subscriptions() *pubsub.Table { return r.subscriptions }
