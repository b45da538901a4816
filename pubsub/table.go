// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package pubsub implements the publish/subscribe engine described in
// SPEC_FULL.md §4.K: subscription bookkeeping, match-policy dispatch,
// allow/block lists, and echo suppression.
package pubsub

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wampgo/wampcore/wampmsg"
)

// Subscriber identifies one subscription's session and its session
// details, needed to evaluate allow/block lists by authid/authrole.
type Subscriber struct {
	SessionID int64
	AuthID    string
	AuthRole  string
}

// Subscription is a single subscribed topic, per SPEC_FULL.md §4.K.
type Subscription struct {
	ID          int64
	Topic       string
	MatchPolicy wampmsg.MatchPolicy
	Subscriber  Subscriber
}

// Table owns all subscriptions for one realm, keyed by topic URI and
// disambiguated by match policy.
type Table struct {
	mu          sync.Mutex
	byID        map[int64]*Subscription
	byURIExact  map[string][]*Subscription
	byURIPrefix map[string][]*Subscription
	byURIWild   map[string][]*Subscription

	nextID int64
}

// NewTable constructs an empty subscription table.
func NewTable() *Table {
	return &Table{
		byID:        make(map[int64]*Subscription),
		byURIExact:  make(map[string][]*Subscription),
		byURIPrefix: make(map[string][]*Subscription),
		byURIWild:   make(map[string][]*Subscription),
	}
}

func (t *Table) allocID() int64 {
	return atomic.AddInt64(&t.nextID, 1)
}

// Subscribe registers sub under the next available subscription id,
// reusing an existing subscription id when topic/policy already has a
// subscriber list matching the WAMP "shared subscription" contract (one
// SUBSCRIBED id per distinct topic+policy, shared across subscribers).
func (t *Table) Subscribe(topic string, policy wampmsg.MatchPolicy, subscriber Subscriber) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.bucketFor(policy)
	if existing := bucket[topic]; len(existing) > 0 {
		id := existing[0].ID
		bucket[topic] = append(bucket[topic], &Subscription{ID: id, Topic: topic, MatchPolicy: policy, Subscriber: subscriber})
		return id
	}

	id := t.allocID()
	sub := &Subscription{ID: id, Topic: topic, MatchPolicy: policy, Subscriber: subscriber}
	t.byID[id] = sub
	bucket[topic] = append(bucket[topic], sub)
	return id
}

func (t *Table) bucketFor(policy wampmsg.MatchPolicy) map[string][]*Subscription {
	switch policy {
	case wampmsg.MatchPrefix:
		return t.byURIPrefix
	case wampmsg.MatchWildcard:
		return t.byURIWild
	default:
		return t.byURIExact
	}
}

// Unsubscribe removes sessionID's membership in subscription id.
// Idempotent: unsubscribing an unknown id, or a session not a member of
// it, is not an error.
func (t *Table) Unsubscribe(id int64, sessionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.byID[id]
	if !ok {
		return
	}
	bucket := t.bucketFor(sub.MatchPolicy)
	regs := bucket[sub.Topic]
	for i, r := range regs {
		if r.ID == id && r.Subscriber.SessionID == sessionID {
			bucket[sub.Topic] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(bucket[sub.Topic]) == 0 {
		delete(bucket, sub.Topic)
		delete(t.byID, id)
	}
}

// UnsubscribeSession removes every subscription sessionID holds across
// all three match policies, for use when a session leaves the realm.
func (t *Table) UnsubscribeSession(sessionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, bucket := range []map[string][]*Subscription{t.byURIExact, t.byURIPrefix, t.byURIWild} {
		for topic, subs := range bucket {
			kept := subs[:0]
			for _, s := range subs {
				if s.Subscriber.SessionID != sessionID {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				delete(t.byID, subs[0].ID)
				delete(bucket, topic)
				continue
			}
			bucket[topic] = kept
		}
	}
}

// MatchingSubscribers returns every subscriber whose subscription
// matches topic, across all three match policies, along with the
// subscription id each subscriber is receiving the event under.
func (t *Table) MatchingSubscribers(topic string) []Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Subscription
	out = append(out, t.byURIExact[topic]...)

	for uri, subs := range t.byURIPrefix {
		if strings.HasPrefix(topic, uri) {
			out = append(out, subs...)
		}
	}

	topicComponents := strings.Split(topic, ".")
	for uri, subs := range t.byURIWild {
		if _, ok := matchWildcard(uri, topicComponents); ok {
			out = append(out, subs...)
		}
	}

	result := make([]Subscription, len(out))
	for i, s := range out {
		result[i] = *s
	}
	return result
}

func matchWildcard(pattern string, topicComponents []string) (int, bool) {
	patternComponents := strings.Split(pattern, ".")
	if len(patternComponents) != len(topicComponents) {
		return 0, false
	}
	specificity := 0
	for i, p := range patternComponents {
		if p == "" {
			continue
		}
		if p != topicComponents[i] {
			return 0, false
		}
		specificity++
	}
	return specificity, true
}
