package realm

import (
	"sync"
	"testing"

	"github.com/wampgo/wampcore/rpc"
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

func TestRealmJoinAndLeave(t *testing.T) {
	r := New("com.example.realm", newRecordingSender())
	r.Join(Member{SessionID: 1, AuthID: "alice", AuthRole: "admin"})
	if r.MemberCount() != 1 {
		t.Fatalf("MemberCount() = %d, want 1", r.MemberCount())
	}
	m, ok := r.Member(1)
	if !ok || m.AuthRole != "admin" {
		t.Fatalf("Member(1) = %+v, %v", m, ok)
	}

	r.Leave(1)
	if r.MemberCount() != 0 {
		t.Fatalf("MemberCount() after Leave = %d, want 0", r.MemberCount())
	}
	if _, ok := r.Member(1); ok {
		t.Fatalf("expected Member(1) to report not-joined after Leave")
	}
}

func TestRealmDealerAndBrokerShareSender(t *testing.T) {
	sender := newRecordingSender()
	r := New("com.example.realm", sender)
	r.Join(Member{SessionID: 1})
	r.Join(Member{SessionID: 2})

	reg := &rpc.Registration{
		ID: 1, Procedure: "com.example.add", MatchPolicy: wampmsg.MatchExact,
		InvocationPolicy: rpc.InvocationSingle, CalleeSessionID: 2,
	}
	if err := r.Registrations().Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Dealer.Call(1, wampmsg.Call{Request: 1, Procedure: "com.example.add"})
	if sender.count(2) != 1 {
		t.Fatalf("expected INVOCATION delivered to callee session, got %d", sender.count(2))
	}

	subscriberSession := int64(2)
	r.Subscriptions().Subscribe("com.example.topic", wampmsg.MatchExact, r.Subscriber(subscriberSession))
	r.Broker.Publish(1, wampmsg.Publish{Request: 2, Topic: "com.example.topic"})
	if sender.count(2) != 2 {
		t.Fatalf("expected EVENT delivered to subscriber session, got %d total deliveries", sender.count(2))
	}
}

func TestRealmLeaveUnregistersCalleesRegistrations(t *testing.T) {
	r := New("com.example.realm", newRecordingSender())
	r.Join(Member{SessionID: 2})

	reg := &rpc.Registration{
		ID: 1, Procedure: "com.example.add", MatchPolicy: wampmsg.MatchExact,
		InvocationPolicy: rpc.InvocationSingle, CalleeSessionID: 2,
	}
	if err := r.Registrations().Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.Leave(2)

	if _, ok := r.Registrations().Match("com.example.add"); ok {
		t.Fatal("expected procedure to stop matching after its callee left")
	}
}

func TestRealmLeaveAbortsInFlightInvocationWhenCalleeDeparts(t *testing.T) {
	sender := newRecordingSender()
	r := New("com.example.realm", sender)
	r.Join(Member{SessionID: 1})
	r.Join(Member{SessionID: 2})

	reg := &rpc.Registration{
		ID: 1, Procedure: "com.example.add", MatchPolicy: wampmsg.MatchExact,
		InvocationPolicy: rpc.InvocationSingle, CalleeSessionID: 2,
	}
	if err := r.Registrations().Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Dealer.Call(1, wampmsg.Call{Request: 1, Procedure: "com.example.add"})
	if sender.count(2) != 1 {
		t.Fatalf("expected INVOCATION delivered to callee session, got %d", sender.count(2))
	}

	r.Leave(2)

	msgs := sender.sent[1]
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one message delivered to the caller, got %d", len(msgs))
	}
	errMsg, ok := msgs[0].(wampmsg.Error)
	if !ok {
		t.Fatalf("caller received %T, want wampmsg.Error", msgs[0])
	}
	if errMsg.RequestType != wampmsg.TypeCall || errMsg.Request != 1 {
		t.Errorf("unexpected ERROR correlation: %+v", errMsg)
	}

	// A late YIELD from the departed callee must find nothing to resolve.
	r.Dealer.HandleYield(2, wampmsg.Yield{Request: 1})
	if sender.count(1) != 1 {
		t.Errorf("expected the late YIELD to be dropped, got %d messages to the caller", sender.count(1))
	}
}

func TestRealmLeaveAbandonsInFlightInvocationWhenCallerDeparts(t *testing.T) {
	sender := newRecordingSender()
	r := New("com.example.realm", sender)
	r.Join(Member{SessionID: 1})
	r.Join(Member{SessionID: 2})

	reg := &rpc.Registration{
		ID: 1, Procedure: "com.example.add", MatchPolicy: wampmsg.MatchExact,
		InvocationPolicy: rpc.InvocationSingle, CalleeSessionID: 2,
	}
	if err := r.Registrations().Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Dealer.Call(1, wampmsg.Call{Request: 1, Procedure: "com.example.add"})

	r.Leave(1)

	// The callee's eventual YIELD finds no invocation left to resolve.
	r.Dealer.HandleYield(2, wampmsg.Yield{Request: 1})
	if sender.count(1) != 0 {
		t.Errorf("expected no message to reach the departed caller, got %d", sender.count(1))
	}
}

func TestRealmLeaveUnsubscribesDepartedSession(t *testing.T) {
	sender := newRecordingSender()
	r := New("com.example.realm", sender)
	r.Join(Member{SessionID: 1})
	r.Join(Member{SessionID: 2})

	r.Subscriptions().Subscribe("com.example.topic", wampmsg.MatchExact, r.Subscriber(2))
	r.Leave(2)

	r.Broker.Publish(1, wampmsg.Publish{Request: 1, Topic: "com.example.topic"})
	if sender.count(2) != 0 {
		t.Errorf("expected no EVENT delivered to the unsubscribed, departed session, got %d", sender.count(2))
	}
}
