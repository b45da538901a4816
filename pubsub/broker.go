package pubsub

import (
	"sync/atomic"

	"github.com/wampgo/wampcore/wampmsg"
)

// Sender delivers one WAMP message to the session identified by
// sessionID.
type Sender interface {
	Send(sessionID int64, msg wampmsg.Message) error
}

// Broker dispatches PUBLISH to matching subscribers, per SPEC_FULL.md
// §4.K: allow/block lists, echo suppression, optional acknowledgement.
type Broker struct {
	table  *Table
	sender Sender

	nextPublicationID int64
}

// NewBroker constructs a Broker dispatching events against table
// through sender.
func NewBroker(table *Table, sender Sender) *Broker {
	return &Broker{table: table, sender: sender}
}

func (b *Broker) allocPublicationID() int64 {
	return atomic.AddInt64(&b.nextPublicationID, 1)
}

// Publish handles an inbound PUBLISH from publisherSession, delivering
// EVENT to every eligible matching subscriber and, if requested,
// PUBLISHED to the publisher.
func (b *Broker) Publish(publisherSession int64, msg wampmsg.Publish) {
	publicationID := b.allocPublicationID()

	excludeMe := true
	if v, ok := msg.Options["exclude_me"].(bool); ok {
		excludeMe = v
	}

	for _, sub := range b.table.MatchingSubscribers(msg.Topic) {
		if sub.Subscriber.SessionID == publisherSession && excludeMe {
			continue
		}
		if !eligible(msg.Options, sub.Subscriber) {
			continue
		}
		event := wampmsg.Event{
			Subscription: sub.ID,
			Publication:  publicationID,
			Details:      wampmsg.Options{},
			Args:         msg.Args,
			Kwargs:       msg.Kwargs,
		}
		_ = b.sender.Send(sub.Subscriber.SessionID, event)
	}

	if acknowledge(msg.Options) {
		_ = b.sender.Send(publisherSession, wampmsg.Published{
			Request:     msg.Request,
			Publication: publicationID,
		})
	}
}

func acknowledge(opts wampmsg.Options) bool {
	v, ok := opts["acknowledge"].(bool)
	return ok && v
}

// eligible applies the allowlist/blocklist options against subscriber,
// per SPEC_FULL.md §4.K: eligible/exclude by session id, authid, and
// authrole. A subscriber must pass every list present in opts.
func eligible(opts wampmsg.Options, subscriber Subscriber) bool {
	if ids, ok := intList(opts["eligible"]); ok && !containsInt64(ids, subscriber.SessionID) {
		return false
	}
	if ids, ok := intList(opts["exclude"]); ok && containsInt64(ids, subscriber.SessionID) {
		return false
	}
	if roles, ok := stringList(opts["eligible_authrole"]); ok && !containsString(roles, subscriber.AuthRole) {
		return false
	}
	if roles, ok := stringList(opts["exclude_authrole"]); ok && containsString(roles, subscriber.AuthRole) {
		return false
	}
	if ids, ok := stringList(opts["eligible_authid"]); ok && !containsString(ids, subscriber.AuthID) {
		return false
	}
	if ids, ok := stringList(opts["exclude_authid"]); ok && containsString(ids, subscriber.AuthID) {
		return false
	}
	return true
}

func intList(v any) ([]int64, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int64, 0, len(raw))
	for _, e := range raw {
		switch n := e.(type) {
		case int64:
			out = append(out, n)
		case int:
			out = append(out, int64(n))
		case float64:
			out = append(out, int64(n))
		}
	}
	return out, true
}

func stringList(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func containsInt64(list []int64, v int64) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
