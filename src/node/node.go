package node

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/mosaicnetworks/duststorm/src/net"
	"github.com/mosaicnetworks/duststorm/src/telemetry"
	"github.com/sirupsen/logrus"
)

// Node is the runtime of a single cluster member. It owns one Handler and
// feeds it the inbound messages of its transport, one at a time and in arrival
// order, interleaved with the ticks of its retry timer.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	trans   net.Transport
	netCh   <-chan *message.Message
	factory HandlerFactory
	handler Handler

	infoLock sync.RWMutex
	id       string
	nodeIDs  []string

	lastMsgID uint64

	controlTimer *ControlTimer

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	start    time.Time
	received uint64
	sent     uint64
	errors   uint64
	ticks    uint64
}

// NewNode is a factory method that returns a Node instance. The handler is
// built by factory once the init message has been received.
func NewNode(conf *Config, trans net.Transport, factory HandlerFactory) *Node {
	controlTimer := NewFixedControlTimer()
	if conf.JitterRetry {
		controlTimer = NewRandomControlTimer()
	}

	return &Node{
		conf:         conf,
		logger:       conf.Logger,
		trans:        trans,
		netCh:        trans.Consumer(),
		factory:      factory,
		controlTimer: controlTimer,
		shutdownCh:   make(chan struct{}),
		start:        time.Now(),
	}
}

// Run starts the transport, performs the init handshake and then dispatches
// messages until the inbound stream ends or Shutdown is called. It returns nil
// when the stream ended cleanly, and the fatal error otherwise: a transport
// failure, a ProtocolViolationError, or an error from the handler.
func (n *Node) Run() error {
	go n.trans.Listen()

	defer n.setState(Shutdown)

	ok, err := n.awaitInit()
	if err != nil || !ok {
		return err
	}

	if _, isTicker := n.handler.(Ticker); isTicker {
		go n.controlTimer.Run(n.conf.RetryInterval)
	}

	return n.loop()
}

// awaitInit blocks on the first inbound message, which must be an init, and
// builds the handler from it. It returns false if the node stopped before any
// message arrived.
func (n *Node) awaitInit() (bool, error) {
	n.logger.Debug("Awaiting init")

	var m *message.Message
	select {
	case msg, ok := <-n.netCh:
		if !ok {
			return false, n.trans.Err()
		}
		m = msg
	case <-n.shutdownCh:
		return false, nil
	}

	n.countReceived(m)

	req, ok := m.Body.Payload.(*message.Init)
	if !ok {
		return false, &ProtocolViolationError{Msg: m, Reason: "first message was not init"}
	}

	n.infoLock.Lock()
	n.id = req.NodeID
	n.nodeIDs = req.NodeIDs
	n.infoLock.Unlock()

	// Only the Run goroutine logs through n.logger from here on.
	n.logger = n.logger.WithField("this_id", req.NodeID)

	handler, err := n.factory(req.NodeID, req.NodeIDs)
	if err != nil {
		if e, isRPC := message.AsError(err); isRPC {
			if rerr := n.Reply(m, e); rerr != nil {
				n.logger.WithError(rerr).Error("Replying to init")
			}
		}
		return false, err
	}
	n.infoLock.Lock()
	n.handler = handler
	n.infoLock.Unlock()

	if err := n.Reply(m, &message.InitOk{}); err != nil {
		return false, err
	}

	n.logger.WithFields(logrus.Fields{
		"node_ids": req.NodeIDs,
	}).Debug("Initialised")

	n.setState(Running)

	return true, nil
}

func (n *Node) loop() error {
	defer n.controlTimer.Shutdown()

	for {
		select {
		case m, ok := <-n.netCh:
			if !ok {
				err := n.trans.Err()
				if err != nil {
					n.logger.WithError(err).Error("Inbound stream failed")
				} else {
					n.logger.Debug("Inbound stream closed")
				}
				return err
			}
			if err := n.dispatch(m); err != nil {
				n.logger.WithError(err).WithField("msg", m.String()).Error("Handler failed")
				return err
			}
		case <-n.controlTimer.tickCh:
			atomic.AddUint64(&n.ticks, 1)
			n.handler.(Ticker).Tick(n)
			n.controlTimer.Reset(n.conf.RetryInterval)
		case <-n.shutdownCh:
			return nil
		}
	}
}

// dispatch hands one message to the handler and converts application errors
// into error replies.
func (n *Node) dispatch(m *message.Message) error {
	n.countReceived(m)

	var err error
	if _, isInit := m.Body.Payload.(*message.Init); isInit {
		err = message.NewError(message.MalformedRequest, "node %s is already initialised", n.ID())
	} else {
		err = n.handler.Handle(m, n)
	}

	if err == nil {
		return nil
	}

	e, isRPC := message.AsError(err)
	if !isRPC {
		return err
	}

	atomic.AddUint64(&n.errors, 1)
	telemetry.HandlerErrors.WithLabelValues(e.Code.String()).Inc()

	if m.IsReply() {
		// Never answer a reply, or two nodes could bounce errors forever.
		n.logger.WithError(e).WithField("msg", m.String()).Warn("Dropping error for a reply")
		return nil
	}

	n.logger.WithError(e).WithField("msg", m.String()).Debug("Replying with error")

	return n.Reply(m, e)
}

// Send implements the Sender interface.
func (n *Node) Send(dest string, p message.Payload) error {
	m := &message.Message{
		Src:  n.ID(),
		Dest: dest,
		Body: message.Body{
			MsgID:   message.ID(atomic.AddUint64(&n.lastMsgID, 1)),
			Payload: p,
		},
	}
	return n.send(m)
}

// Reply implements the Sender interface.
func (n *Node) Reply(req *message.Message, p message.Payload) error {
	return n.send(message.Reply(req, p))
}

func (n *Node) send(m *message.Message) error {
	if err := n.trans.Send(m); err != nil {
		return err
	}
	atomic.AddUint64(&n.sent, 1)
	telemetry.MessagesSent.WithLabelValues(m.Type()).Inc()
	return nil
}

func (n *Node) countReceived(m *message.Message) {
	atomic.AddUint64(&n.received, 1)
	telemetry.MessagesReceived.WithLabelValues(m.Type()).Inc()
}

// Shutdown stops the dispatch loop and closes the transport.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		close(n.shutdownCh)
		n.trans.Close()
	})
}

// ID returns the identifier assigned by the init message, or the empty string
// before init.
func (n *Node) ID() string {
	n.infoLock.RLock()
	defer n.infoLock.RUnlock()
	return n.id
}

// NodeIDs returns the cluster roster received with the init message.
func (n *Node) NodeIDs() []string {
	n.infoLock.RLock()
	defer n.infoLock.RUnlock()
	return n.nodeIDs
}

// Handler returns the handler built from the init message, or nil before init.
func (n *Node) Handler() Handler {
	n.infoLock.RLock()
	defer n.infoLock.RUnlock()
	return n.handler
}

// GetState returns the current state of the node.
func (n *Node) GetState() State {
	return n.getState()
}

// GetStats returns counters describing the node. It is safe to call from any
// goroutine.
func (n *Node) GetStats() map[string]string {
	stats := map[string]string{
		"id":                n.ID(),
		"state":             n.getState().String(),
		"num_peers":         strconv.Itoa(len(n.NodeIDs())),
		"messages_received": strconv.FormatUint(atomic.LoadUint64(&n.received), 10),
		"messages_sent":     strconv.FormatUint(atomic.LoadUint64(&n.sent), 10),
		"handler_errors":    strconv.FormatUint(atomic.LoadUint64(&n.errors), 10),
		"ticks":             strconv.FormatUint(atomic.LoadUint64(&n.ticks), 10),
		"time_elapsed":      strconv.FormatFloat(time.Since(n.start).Seconds(), 'f', 2, 64),
	}

	if sp, ok := n.Handler().(StatsProvider); ok {
		for k, v := range sp.Stats() {
			stats[k] = v
		}
	}

	return stats
}

// StatsProvider is implemented by handlers that publish their own counters in
// GetStats. Stats may be called from any goroutine.
type StatsProvider interface {
	Stats() map[string]string
}
