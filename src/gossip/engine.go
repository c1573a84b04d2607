package gossip

import (
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/mosaicnetworks/duststorm/src/node"
	"github.com/mosaicnetworks/duststorm/src/store"
	"github.com/mosaicnetworks/duststorm/src/telemetry"
	"github.com/sirupsen/logrus"
)

// Engine disseminates broadcast values to the neighbours of a node.
type Engine struct {
	self    string
	nodeIDs []string

	neighbours []string
	store      store.Store

	// value => neighbours that have not acknowledged it. Entries are never
	// empty.
	pending map[int32]map[string]struct{}

	logger *logrus.Entry

	numNeighbours int64
	numPending    int64
	broadcasts    uint64
	gossipsIn     uint64
	acks          uint64
	resends       uint64
}

// NewEngine returns an Engine for node self. The values already in s are
// known from the start, and are gossiped to the neighbours once a topology is
// installed.
func NewEngine(self string, nodeIDs []string, s store.Store, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	e := &Engine{
		self:    self,
		nodeIDs: nodeIDs,
		store:   s,
		pending: make(map[int32]map[string]struct{}),
		logger:  logger.WithField("prefix", "gossip"),
	}

	if n := s.Len(); n > 0 {
		e.logger.WithField("values", n).Info("Bootstrapped values from store")
	}
	telemetry.KnownValues.Set(float64(s.Len()))

	return e
}

// NewHandlerFactory returns a node.HandlerFactory that builds an Engine on top
// of the store returned by newStore for the node's identifier.
func NewHandlerFactory(newStore func(self string) (store.Store, error), logger *logrus.Entry) node.HandlerFactory {
	return func(self string, nodeIDs []string) (node.Handler, error) {
		s, err := newStore(self)
		if err != nil {
			return nil, err
		}
		return NewEngine(self, nodeIDs, s, logger), nil
	}
}

// Handle implements the node.Handler interface.
func (e *Engine) Handle(m *message.Message, out node.Sender) error {
	switch p := m.Body.Payload.(type) {
	case *message.Broadcast:
		return e.broadcast(m, p, out)
	case *message.Gossip:
		return e.gossip(m, p, out)
	case *message.GossipOk:
		e.gossipOk(p)
		return nil
	case *message.Topology:
		return e.topology(m, p, out)
	case *message.Read:
		return out.Reply(m, &message.ReadOk{Messages: e.store.Values()})
	}

	if m.IsReply() {
		e.logger.WithField("msg", m.String()).Debug("Ignoring reply")
		return nil
	}

	return message.NewError(message.NotSupported, "%s is not supported", m.Type())
}

func (e *Engine) broadcast(m *message.Message, p *message.Broadcast, out node.Sender) error {
	atomic.AddUint64(&e.broadcasts, 1)

	isNew, err := e.learn(p.Message)
	if err != nil {
		return err
	}

	if isNew {
		e.addPending(p.Message, e.neighbours)
		for _, n := range e.neighbours {
			if err := out.Send(n, &message.Gossip{Message: p.Message, Recipients: []string{}}); err != nil {
				return err
			}
		}
	}

	return out.Reply(m, &message.BroadcastOk{})
}

func (e *Engine) gossip(m *message.Message, p *message.Gossip, out node.Sender) error {
	atomic.AddUint64(&e.gossipsIn, 1)

	isNew, err := e.learn(p.Message)
	if err != nil {
		return err
	}

	if isNew {
		informed := make(map[string]struct{}, len(p.Recipients)+1)
		for _, r := range p.Recipients {
			informed[r] = struct{}{}
		}
		informed[m.Src] = struct{}{}

		targets := []string{}
		for _, n := range e.neighbours {
			if _, ok := informed[n]; !ok {
				targets = append(targets, n)
			}
		}

		if len(targets) > 0 {
			for _, n := range e.neighbours {
				informed[n] = struct{}{}
			}
			recipients := sortedKeys(informed)

			e.addPending(p.Message, targets)
			for _, n := range targets {
				if err := out.Send(n, &message.Gossip{Message: p.Message, Recipients: recipients}); err != nil {
					return err
				}
			}
		}
	}

	return out.Reply(m, &message.GossipOk{NodeID: e.self, Message: p.Message})
}

func (e *Engine) gossipOk(p *message.GossipOk) {
	atomic.AddUint64(&e.acks, 1)

	waiting, ok := e.pending[p.Message]
	if !ok {
		e.logger.WithFields(logrus.Fields{
			"value": p.Message,
			"from":  p.NodeID,
		}).Debug("Ack for a value with nothing pending")
		return
	}
	if _, ok := waiting[p.NodeID]; !ok {
		return
	}

	delete(waiting, p.NodeID)
	if len(waiting) == 0 {
		delete(e.pending, p.Message)
	}
	e.pendingChanged()
}

func (e *Engine) topology(m *message.Message, p *message.Topology, out node.Sender) error {
	list, ok := p.Topology[e.self]
	if !ok {
		e.logger.Warn("Topology has no entry for this node")
	}

	neighbours := []string{}
	seen := map[string]struct{}{e.self: {}}
	for _, n := range list {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		neighbours = append(neighbours, n)
	}

	e.setNeighbours(neighbours)

	e.logger.WithField("neighbours", neighbours).Debug("Installed topology")

	return out.Reply(m, &message.TopologyOk{})
}

// setNeighbours replaces the neighbour list and re-derives the pending sets:
// neighbours that left are dropped, and neighbours that joined are owed every
// known value.
func (e *Engine) setNeighbours(neighbours []string) {
	next := make(map[string]struct{}, len(neighbours))
	for _, n := range neighbours {
		next[n] = struct{}{}
	}
	prev := make(map[string]struct{}, len(e.neighbours))
	for _, n := range e.neighbours {
		prev[n] = struct{}{}
	}

	for v, waiting := range e.pending {
		for n := range waiting {
			if _, ok := next[n]; !ok {
				delete(waiting, n)
			}
		}
		if len(waiting) == 0 {
			delete(e.pending, v)
		}
	}

	joined := []string{}
	for _, n := range neighbours {
		if _, ok := prev[n]; !ok {
			joined = append(joined, n)
		}
	}

	e.neighbours = neighbours
	atomic.StoreInt64(&e.numNeighbours, int64(len(neighbours)))

	if len(joined) > 0 {
		for _, v := range e.store.Values() {
			e.addPending(v, joined)
		}
	}
	e.pendingChanged()
}

// Tick implements the node.Ticker interface. It re-sends every value that is
// still pending to the neighbours that owe an acknowledgement.
func (e *Engine) Tick(out node.Sender) {
	if len(e.pending) == 0 {
		return
	}

	values := make([]int32, 0, len(e.pending))
	for v := range e.pending {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	for _, v := range values {
		recipients := append([]string{}, e.neighbours...)
		for _, n := range sortedKeys(e.pending[v]) {
			if err := out.Send(n, &message.Gossip{Message: v, Recipients: recipients}); err != nil {
				e.logger.WithError(err).WithField("to", n).Warn("Resending gossip")
				return
			}
			atomic.AddUint64(&e.resends, 1)
			telemetry.GossipResends.Inc()
		}
	}
}

// learn adds v to the store and reports whether it was new.
func (e *Engine) learn(v int32) (bool, error) {
	isNew, err := e.store.Add(v)
	if err != nil {
		return false, err
	}
	if isNew {
		e.logger.WithField("value", v).Debug("Learned value")
		telemetry.KnownValues.Set(float64(e.store.Len()))
	}
	return isNew, nil
}

func (e *Engine) addPending(v int32, neighbours []string) {
	if len(neighbours) == 0 {
		return
	}
	waiting, ok := e.pending[v]
	if !ok {
		waiting = make(map[string]struct{}, len(neighbours))
		e.pending[v] = waiting
	}
	for _, n := range neighbours {
		waiting[n] = struct{}{}
	}
	e.pendingChanged()
}

func (e *Engine) pendingChanged() {
	var total int64
	for _, waiting := range e.pending {
		total += int64(len(waiting))
	}
	atomic.StoreInt64(&e.numPending, total)
	telemetry.PendingAcks.Set(float64(total))
}

// Values returns the known values in ascending order.
func (e *Engine) Values() []int32 {
	return e.store.Values()
}

// Neighbours returns a copy of the current neighbour list.
func (e *Engine) Neighbours() []string {
	return append([]string{}, e.neighbours...)
}

// Pending returns a copy of the pending-ack table.
func (e *Engine) Pending() map[int32][]string {
	res := make(map[int32][]string, len(e.pending))
	for v, waiting := range e.pending {
		res[v] = sortedKeys(waiting)
	}
	return res
}

// Stats implements node.StatsProvider. Unlike the other methods it may be
// called from any goroutine.
func (e *Engine) Stats() map[string]string {
	return map[string]string{
		"known_values":   strconv.Itoa(e.store.Len()),
		"num_neighbours": strconv.FormatInt(atomic.LoadInt64(&e.numNeighbours), 10),
		"pending_acks":   strconv.FormatInt(atomic.LoadInt64(&e.numPending), 10),
		"broadcasts":     strconv.FormatUint(atomic.LoadUint64(&e.broadcasts), 10),
		"gossips_in":     strconv.FormatUint(atomic.LoadUint64(&e.gossipsIn), 10),
		"gossip_acks":    strconv.FormatUint(atomic.LoadUint64(&e.acks), 10),
		"gossip_resends": strconv.FormatUint(atomic.LoadUint64(&e.resends), 10),
	}
}

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

func sortedKeys(set map[string]struct{}) []string {
	res := make([]string, 0, len(set))
	for k := range set {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
