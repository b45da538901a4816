package pubsub

import (
	"sync"
	"testing"

	"github.com/wampgo/wampcore/wampmsg"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[int64][]wampmsg.Message
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[int64][]wampmsg.Message)}
}

func (s *recordingSender) Send(sessionID int64, msg wampmsg.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[sessionID] = append(s.sent[sessionID], msg)
	return nil
}

func (s *recordingSender) count(sessionID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[sessionID])
}

func TestBrokerPublishDeliversEventToSubscriber(t *testing.T) {
	tbl := NewTable()
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 2})
	sender := newRecordingSender()
	b := NewBroker(tbl, sender)

	b.Publish(1, wampmsg.Publish{Request: 1, Topic: "com.example.topic", Args: wampmsg.Args{"hi"}})

	if sender.count(2) != 1 {
		t.Fatalf("expected 1 event delivered, got %d", sender.count(2))
	}
}

func TestBrokerExcludesPublisherByDefault(t *testing.T) {
	tbl := NewTable()
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 1})
	sender := newRecordingSender()
	b := NewBroker(tbl, sender)

	b.Publish(1, wampmsg.Publish{Request: 1, Topic: "com.example.topic"})

	if sender.count(1) != 0 {
		t.Errorf("expected publisher excluded by default, got %d deliveries", sender.count(1))
	}
}

func TestBrokerExcludeMeFalseIncludesPublisher(t *testing.T) {
	tbl := NewTable()
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 1})
	sender := newRecordingSender()
	b := NewBroker(tbl, sender)

	b.Publish(1, wampmsg.Publish{
		Request: 1, Topic: "com.example.topic",
		Options: wampmsg.Options{"exclude_me": false},
	})

	if sender.count(1) != 1 {
		t.Errorf("expected publisher included, got %d deliveries", sender.count(1))
	}
}

func TestBrokerAcknowledgeSendsPublished(t *testing.T) {
	tbl := NewTable()
	sender := newRecordingSender()
	b := NewBroker(tbl, sender)

	b.Publish(1, wampmsg.Publish{
		Request: 42, Topic: "com.example.topic",
		Options: wampmsg.Options{"acknowledge": true},
	})

	msgs := sender.sent[1]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message to publisher, got %d", len(msgs))
	}
	pub, ok := msgs[0].(wampmsg.Published)
	if !ok || pub.Request != 42 {
		t.Fatalf("expected PUBLISHED echoing request 42, got %+v", msgs[0])
	}
}

func TestBrokerExcludeListFiltersSubscriber(t *testing.T) {
	tbl := NewTable()
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 2})
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 3})
	sender := newRecordingSender()
	b := NewBroker(tbl, sender)

	b.Publish(1, wampmsg.Publish{
		Request: 1, Topic: "com.example.topic",
		Options: wampmsg.Options{"exclude": []any{int64(2)}},
	})

	if sender.count(2) != 0 {
		t.Errorf("expected session 2 excluded")
	}
	if sender.count(3) != 1 {
		t.Errorf("expected session 3 to receive the event")
	}
}

func TestBrokerEligibleAuthroleFiltersSubscriber(t *testing.T) {
	tbl := NewTable()
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 2, AuthRole: "admin"})
	tbl.Subscribe("com.example.topic", wampmsg.MatchExact, Subscriber{SessionID: 3, AuthRole: "guest"})
	sender := newRecordingSender()
	b := NewBroker(tbl, sender)

	b.Publish(1, wampmsg.Publish{
		Request: 1, Topic: "com.example.topic",
		Options: wampmsg.Options{"eligible_authrole": []any{"admin"}},
	})

	if sender.count(2) != 1 {
		t.Errorf("expected admin subscriber to receive the event")
	}
	if sender.count(3) != 0 {
		t.Errorf("expected guest subscriber excluded")
	}
}
