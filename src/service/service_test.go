package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/duststorm/src/common"
	"github.com/mosaicnetworks/duststorm/src/gossip"
	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/mosaicnetworks/duststorm/src/net"
	"github.com/mosaicnetworks/duststorm/src/node"
	"github.com/mosaicnetworks/duststorm/src/store"
	"github.com/mosaicnetworks/duststorm/src/workload"
)

func runNode(t *testing.T, factory node.HandlerFactory) (*node.Node, *net.InmemTransport) {
	trans := net.NewInmemTransport(64)
	n := node.NewNode(node.TestConfig(t), trans, factory)
	go n.Run()

	req := message.New("c", "n1", &message.Init{NodeID: "n1", NodeIDs: []string{"n1"}})
	req.Body.MsgID = message.ID(1)
	trans.Deliver(req)
	waitFor(t, trans, message.TypeInitOk)

	return n, trans
}

func waitFor(t *testing.T, trans *net.InmemTransport, typ string) {
	for {
		select {
		case m := <-trans.Sent():
			if m.Type() == typ {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", typ)
		}
	}
}

func get(t *testing.T, s *Service, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatsAndValues(t *testing.T) {
	factory := gossip.NewHandlerFactory(func(string) (store.Store, error) {
		return store.NewInmemStore(), nil
	}, common.NewTestEntry(t, common.TestLogLevel))

	n, trans := runNode(t, factory)
	defer n.Shutdown()

	for i, v := range []int32{5, 3} {
		b := message.New("c", "n1", &message.Broadcast{Message: v})
		b.Body.MsgID = message.ID(uint64(i + 2))
		trans.Deliver(b)
		waitFor(t, trans, message.TypeBroadcastOk)
	}

	s := NewService("127.0.0.1:0", n, common.NewTestEntry(t, common.TestLogLevel))

	rec := get(t, s, "/values")
	if rec.Code != http.StatusOK {
		t.Fatalf("/values returned %d", rec.Code)
	}
	var values []int32
	if err := json.NewDecoder(rec.Body).Decode(&values); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(values, []int32{3, 5}) {
		t.Fatalf("/values should be [3 5], not %v", values)
	}

	rec = get(t, s, "/stats")
	var stats map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["id"] != "n1" || stats["known_values"] != "2" || stats["broadcasts"] != "2" {
		t.Fatalf("unexpected stats %v", stats)
	}

	rec = get(t, s, "/metrics")
	if !strings.Contains(rec.Body.String(), "duststorm_messages_received_total") {
		t.Fatalf("/metrics should expose the message counters")
	}
}

func TestValuesWithoutStore(t *testing.T) {
	n, _ := runNode(t, workload.NewEchoFactory())
	defer n.Shutdown()

	s := NewService("127.0.0.1:0", n, common.NewTestEntry(t, common.TestLogLevel))

	if rec := get(t, s, "/values"); rec.Code != http.StatusNotFound {
		t.Fatalf("an echo node has no values, got %d", rec.Code)
	}
}
