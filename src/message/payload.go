package message

// Wire tags of the payload variants.
const (
	TypeInit        = "init"
	TypeInitOk      = "init_ok"
	TypeTopology    = "topology"
	TypeTopologyOk  = "topology_ok"
	TypeBroadcast   = "broadcast"
	TypeBroadcastOk = "broadcast_ok"
	TypeRead        = "read"
	TypeReadOk      = "read_ok"
	TypeGossip      = "gossip"
	TypeGossipOk    = "gossip_ok"
	TypeEcho        = "echo"
	TypeEchoOk      = "echo_ok"
	TypeGenerate    = "generate"
	TypeGenerateOk  = "generate_ok"
	TypeError       = "error"
)

// Payload is the type-specific part of a Body. It is implemented only by the
// variants of this package.
type Payload interface {
	// Type returns the wire tag of the variant.
	Type() string

	// fields adds the variant's fields to the wire representation of the body.
	fields(map[string]interface{})
}

// Init is the first message a node receives. It assigns the node's identifier
// and lists every node of the cluster.
type Init struct {
	NodeID  string
	NodeIDs []string
}

// InitOk acknowledges an Init.
type InitOk struct{}

// Topology assigns neighbours to nodes.
type Topology struct {
	Topology map[string][]string
}

// TopologyOk acknowledges a Topology.
type TopologyOk struct{}

// Broadcast asks a node to disseminate a value.
type Broadcast struct {
	Message int32
}

// BroadcastOk acknowledges a Broadcast.
type BroadcastOk struct{}

// Read asks a node for every value it knows.
type Read struct{}

// ReadOk answers a Read.
type ReadOk struct {
	Messages []int32
}

// Gossip carries a value between neighbours. Recipients is the sender's belief
// of which nodes already have the value.
type Gossip struct {
	Message    int32
	Recipients []string
}

// GossipOk acknowledges that NodeID received a Gossip about Message.
type GossipOk struct {
	NodeID  string
	Message int32
}

// Echo asks a node to send Echo back.
type Echo struct {
	Echo string
}

// EchoOk answers an Echo.
type EchoOk struct {
	Echo string
}

// Generate asks a node for a cluster-wide unique identifier.
type Generate struct{}

// GenerateOk answers a Generate.
type GenerateOk struct {
	ID uint64
}

func (*Init) Type() string        { return TypeInit }
func (*InitOk) Type() string      { return TypeInitOk }
func (*Topology) Type() string    { return TypeTopology }
func (*TopologyOk) Type() string  { return TypeTopologyOk }
func (*Broadcast) Type() string   { return TypeBroadcast }
func (*BroadcastOk) Type() string { return TypeBroadcastOk }
func (*Read) Type() string        { return TypeRead }
func (*ReadOk) Type() string      { return TypeReadOk }
func (*Gossip) Type() string      { return TypeGossip }
func (*GossipOk) Type() string    { return TypeGossipOk }
func (*Echo) Type() string        { return TypeEcho }
func (*EchoOk) Type() string      { return TypeEchoOk }
func (*Generate) Type() string    { return TypeGenerate }
func (*GenerateOk) Type() string  { return TypeGenerateOk }
func (*Error) Type() string       { return TypeError }

func (p *Init) fields(f map[string]interface{}) {
	f["node_id"] = p.NodeID
	f["node_ids"] = nonNilStrings(p.NodeIDs)
}

func (*InitOk) fields(map[string]interface{}) {}

func (p *Topology) fields(f map[string]interface{}) {
	topo := make(map[string][]string, len(p.Topology))
	for id, neighbours := range p.Topology {
		topo[id] = nonNilStrings(neighbours)
	}
	f["topology"] = topo
}

func (*TopologyOk) fields(map[string]interface{}) {}

func (p *Broadcast) fields(f map[string]interface{}) {
	f["message"] = p.Message
}

func (*BroadcastOk) fields(map[string]interface{}) {}

func (*Read) fields(map[string]interface{}) {}

func (p *ReadOk) fields(f map[string]interface{}) {
	msgs := p.Messages
	if msgs == nil {
		msgs = []int32{}
	}
	f["messages"] = msgs
}

func (p *Gossip) fields(f map[string]interface{}) {
	f["message"] = p.Message
	f["recipients"] = nonNilStrings(p.Recipients)
}

func (p *GossipOk) fields(f map[string]interface{}) {
	f["node_id"] = p.NodeID
	f["message"] = p.Message
}

func (p *Echo) fields(f map[string]interface{}) {
	f["echo"] = p.Echo
}

func (p *EchoOk) fields(f map[string]interface{}) {
	f["echo"] = p.Echo
}

func (*Generate) fields(map[string]interface{}) {}

func (p *GenerateOk) fields(f map[string]interface{}) {
	f["id"] = p.ID
}

func (p *Error) fields(f map[string]interface{}) {
	f["code"] = int(p.Code)
	if p.Text != "" {
		f["text"] = p.Text
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
