package workload

import (
	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/mosaicnetworks/duststorm/src/node"
)

// Echo answers every echo request with an echo_ok carrying the same text.
type Echo struct{}

// NewEchoFactory ...
func NewEchoFactory() node.HandlerFactory {
	return func(string, []string) (node.Handler, error) {
		return &Echo{}, nil
	}
}

// Handle implements the node.Handler interface.
func (*Echo) Handle(m *message.Message, out node.Sender) error {
	switch p := m.Body.Payload.(type) {
	case *message.Echo:
		return out.Reply(m, &message.EchoOk{Echo: p.Echo})
	}
	if m.IsReply() {
		return nil
	}
	return message.NewError(message.NotSupported, "%s is not supported", m.Type())
}
