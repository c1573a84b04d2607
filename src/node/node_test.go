package node

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/mosaicnetworks/duststorm/src/net"
)

// recorder is a Handler that replies to read requests, fails on demand, and
// records everything it sees.
type recorder struct {
	sync.Mutex
	self    string
	nodeIDs []string
	seen    []uint64
	fail    map[string]error
	ticks   int
}

func (r *recorder) Handle(m *message.Message, out Sender) error {
	r.Lock()
	if m.Body.MsgID != nil {
		r.seen = append(r.seen, *m.Body.MsgID)
	}
	err := r.fail[m.Type()]
	r.Unlock()

	if err != nil {
		return err
	}
	if m.Type() == message.TypeRead {
		return out.Reply(m, &message.ReadOk{})
	}
	return nil
}

func (r *recorder) getSeen() []uint64 {
	r.Lock()
	defer r.Unlock()
	return append([]uint64(nil), r.seen...)
}

type tickingRecorder struct {
	recorder
}

func (r *tickingRecorder) Tick(out Sender) {
	r.Lock()
	r.ticks++
	r.Unlock()
	out.Send("n2", &message.Gossip{Message: 1})
}

func (r *tickingRecorder) getTicks() int {
	r.Lock()
	defer r.Unlock()
	return r.ticks
}

func factoryFor(h interface {
	Handler
	setInit(string, []string)
}) HandlerFactory {
	return func(self string, nodeIDs []string) (Handler, error) {
		h.setInit(self, nodeIDs)
		return h, nil
	}
}

func (r *recorder) setInit(self string, nodeIDs []string) {
	r.Lock()
	defer r.Unlock()
	r.self = self
	r.nodeIDs = nodeIDs
}

func newTestNode(t *testing.T, h interface {
	Handler
	setInit(string, []string)
}) (*Node, *net.InmemTransport, chan error) {
	trans := net.NewInmemTransport(64)
	node := NewNode(TestConfig(t), trans, factoryFor(h))

	done := make(chan error, 1)
	go func() {
		done <- node.Run()
	}()

	return node, trans, done
}

func request(src, dest string, id uint64, p message.Payload) *message.Message {
	return &message.Message{
		Src:  src,
		Dest: dest,
		Body: message.Body{MsgID: message.ID(id), Payload: p},
	}
}

func initMsg(id uint64) *message.Message {
	return request("c", "n1", id, &message.Init{NodeID: "n1", NodeIDs: []string{"n1", "n2", "n3"}})
}

func nextSent(t *testing.T, trans *net.InmemTransport) *message.Message {
	select {
	case m := <-trans.Sent():
		return m
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for an outbound message")
	}
	return nil
}

func waitDone(t *testing.T, done chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for Run to return")
	}
	return nil
}

func TestInitHandshake(t *testing.T) {
	h := &recorder{}
	node, trans, done := newTestNode(t, h)

	trans.Deliver(initMsg(1))

	reply := nextSent(t, trans)
	if reply.Type() != message.TypeInitOk {
		t.Fatalf("expected init_ok, got %s", reply.Type())
	}
	if reply.Src != "n1" || reply.Dest != "c" {
		t.Fatalf("init_ok should go n1->c, not %s->%s", reply.Src, reply.Dest)
	}
	if reply.Body.InReplyTo == nil || *reply.Body.InReplyTo != 1 {
		t.Fatalf("init_ok should answer msg 1")
	}
	if reply.Body.MsgID != nil {
		t.Fatalf("init_ok should not carry a msg_id")
	}

	trans.EndInbound(nil)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("err: %v", err)
	}

	if h.self != "n1" {
		t.Fatalf("handler should be built for n1, not %q", h.self)
	}
	if !reflect.DeepEqual(h.nodeIDs, []string{"n1", "n2", "n3"}) {
		t.Fatalf("handler got wrong roster %v", h.nodeIDs)
	}
	if node.ID() != "n1" {
		t.Fatalf("node id should be n1, not %q", node.ID())
	}
	if node.GetState() != Shutdown {
		t.Fatalf("node should be Shutdown, not %s", node.GetState())
	}
}

func TestFirstMessageNotInit(t *testing.T) {
	_, trans, done := newTestNode(t, &recorder{})

	trans.Deliver(request("c", "n1", 1, &message.Read{}))

	err := waitDone(t, done)
	if !IsProtocolViolation(err) {
		t.Fatalf("expected a protocol violation, got %v", err)
	}
}

func TestEndBeforeInit(t *testing.T) {
	_, trans, done := newTestNode(t, &recorder{})

	trans.EndInbound(nil)

	if err := waitDone(t, done); err != nil {
		t.Fatalf("closed stream before init should not be an error: %v", err)
	}
}

func TestDispatchOrder(t *testing.T) {
	h := &recorder{}
	_, trans, done := newTestNode(t, h)

	trans.Deliver(initMsg(1))
	for i := uint64(2); i < 20; i++ {
		trans.Deliver(request("c", "n1", i, &message.Read{}))
	}
	trans.EndInbound(nil)

	nextSent(t, trans) // init_ok
	for i := uint64(2); i < 20; i++ {
		reply := nextSent(t, trans)
		if *reply.Body.InReplyTo != i {
			t.Fatalf("reply %d answers %d", i, *reply.Body.InReplyTo)
		}
	}

	if err := waitDone(t, done); err != nil {
		t.Fatalf("err: %v", err)
	}

	seen := h.getSeen()
	for i, id := range seen {
		if id != uint64(i+2) {
			t.Fatalf("message %d handled out of order: %v", id, seen)
		}
	}
}

func TestErrorReply(t *testing.T) {
	h := &recorder{
		fail: map[string]error{
			message.TypeEcho:     message.NewError(message.NotSupported, "echo"),
			message.TypeReadOk:   message.NewError(message.NotSupported, "read_ok"),
			message.TypeGenerate: fmt.Errorf("wrapped: %w", &message.Error{Code: message.Abort}),
		},
	}
	_, trans, done := newTestNode(t, h)

	trans.Deliver(initMsg(1))
	nextSent(t, trans)

	trans.Deliver(request("c", "n1", 2, &message.Echo{Echo: "hi"}))
	reply := nextSent(t, trans)
	e, ok := reply.Body.Payload.(*message.Error)
	if !ok || e.Code != message.NotSupported {
		t.Fatalf("expected a not-supported error, got %#v", reply.Body.Payload)
	}
	if *reply.Body.InReplyTo != 2 {
		t.Fatalf("error should answer msg 2")
	}

	// A reply that fails to handle is not answered.
	readOk := request("n2", "n1", 3, &message.ReadOk{})
	readOk.Body.InReplyTo = message.ID(9)
	trans.Deliver(readOk)

	trans.Deliver(request("c", "n1", 4, &message.Generate{}))
	reply = nextSent(t, trans)
	if *reply.Body.InReplyTo != 4 {
		t.Fatalf("the reply should not have been answered; got answer to %d", *reply.Body.InReplyTo)
	}
	if e := reply.Body.Payload.(*message.Error); e.Code != message.Abort {
		t.Fatalf("expected abort, got %s", e.Code)
	}

	trans.EndInbound(nil)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("application errors should not be fatal: %v", err)
	}
}

func TestSecondInit(t *testing.T) {
	_, trans, done := newTestNode(t, &recorder{})

	trans.Deliver(initMsg(1))
	nextSent(t, trans)

	trans.Deliver(initMsg(2))
	reply := nextSent(t, trans)
	e, ok := reply.Body.Payload.(*message.Error)
	if !ok || e.Code != message.MalformedRequest {
		t.Fatalf("second init should be answered with malformed-request, got %#v", reply.Body.Payload)
	}

	trans.EndInbound(nil)
	waitDone(t, done)
}

func TestFatalHandlerError(t *testing.T) {
	boom := fmt.Errorf("boom")
	_, trans, done := newTestNode(t, &recorder{fail: map[string]error{message.TypeRead: boom}})

	trans.Deliver(initMsg(1))
	nextSent(t, trans)
	trans.Deliver(request("c", "n1", 2, &message.Read{}))

	if err := waitDone(t, done); err != boom {
		t.Fatalf("expected the handler error, got %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	_, trans, done := newTestNode(t, &recorder{})

	trans.Deliver(initMsg(1))
	nextSent(t, trans)

	broken := fmt.Errorf("broken stream")
	trans.EndInbound(broken)

	if err := waitDone(t, done); err != broken {
		t.Fatalf("expected the transport error, got %v", err)
	}
}

func TestTicks(t *testing.T) {
	h := &tickingRecorder{}
	node, trans, done := newTestNode(t, h)

	trans.Deliver(initMsg(1))
	nextSent(t, trans)

	var last uint64
	for i := 0; i < 3; i++ {
		m := nextSent(t, trans)
		if m.Type() != message.TypeGossip || m.Src != "n1" || m.Dest != "n2" {
			t.Fatalf("unexpected tick message %s", m)
		}
		if m.Body.MsgID == nil || *m.Body.MsgID <= last {
			t.Fatalf("msg_id should increase")
		}
		last = *m.Body.MsgID
	}

	node.Shutdown()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("err: %v", err)
	}

	if h.getTicks() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", h.getTicks())
	}
	if node.GetStats()["id"] != "n1" {
		t.Fatalf("stats should report the node id")
	}
}

func TestControlTimer(t *testing.T) {
	timer := NewFixedControlTimer()
	go timer.Run(5 * time.Millisecond)
	defer timer.Shutdown()

	for i := 0; i < 2; i++ {
		select {
		case <-timer.tickCh:
		case <-time.After(time.Second):
			t.Fatalf("timer did not tick")
		}

		select {
		case <-timer.tickCh:
			t.Fatalf("timer ticked without being reset")
		case <-time.After(20 * time.Millisecond):
		}

		if !timer.Reset(5 * time.Millisecond) {
			t.Fatalf("reset failed")
		}
	}
}
