package workload

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/duststorm/src/message"
	"github.com/mosaicnetworks/duststorm/src/node"
	"github.com/sirupsen/logrus"
)

// Layout of an identifier, from the most significant bit:
//
//	40 bits  milliseconds since Epoch
//	 8 bits  node index
//	16 bits  sequence within the millisecond
const (
	timestampBits = 40
	nodeBits      = 8
	seqBits       = 16

	maxSeq       = 1<<seqBits - 1
	maxNodeIndex = 1<<nodeBits - 1
)

// Epoch is the origin of the timestamp part of identifiers. 40 bits of
// milliseconds last until 2054.
var Epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// UniqueIDs answers generate requests with identifiers that are unique across
// the cluster, as long as node indices are. The index of a node is the number
// in its identifier: n3 has index 3.
type UniqueIDs struct {
	index uint64
	now   func() time.Time

	// lastTS can run ahead of the clock when more than maxSeq+1 ids are
	// generated within a millisecond.
	lastTS uint64
	seq    uint64

	generated uint64
	logger    *logrus.Entry
}

// NewUniqueIDs returns a UniqueIDs handler for the node called self. self
// must be of the form n<index>, with an index below 256.
func NewUniqueIDs(self string, logger *logrus.Entry) (*UniqueIDs, error) {
	index, err := nodeIndex(self)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &UniqueIDs{
		index:  index,
		now:    time.Now,
		logger: logger.WithField("prefix", "unique-ids"),
	}, nil
}

// NewUniqueIDsFactory ...
func NewUniqueIDsFactory(logger *logrus.Entry) node.HandlerFactory {
	return func(self string, _ []string) (node.Handler, error) {
		return NewUniqueIDs(self, logger)
	}
}

func nodeIndex(id string) (uint64, error) {
	if len(id) < 2 || id[0] != 'n' {
		return 0, message.NewError(message.MalformedRequest, "node id %q is not of the form n<index>", id)
	}
	index, err := strconv.ParseUint(id[1:], 10, nodeBits)
	if err != nil {
		return 0, message.NewError(message.MalformedRequest, "node index of %q must be in [0, %d]", id, maxNodeIndex)
	}
	return index, nil
}

// Handle implements the node.Handler interface.
func (u *UniqueIDs) Handle(m *message.Message, out node.Sender) error {
	switch m.Body.Payload.(type) {
	case *message.Generate:
		id, err := u.Next()
		if err != nil {
			return err
		}
		return out.Reply(m, &message.GenerateOk{ID: id})
	}
	if m.IsReply() {
		return nil
	}
	return message.NewError(message.NotSupported, "%s is not supported", m.Type())
}

// Next returns a new identifier.
func (u *UniqueIDs) Next() (uint64, error) {
	now := u.now()
	if now.Before(Epoch) {
		return 0, message.NewError(message.Abort, "clock is before %s", Epoch.Format(time.RFC3339))
	}

	ts := uint64(now.Sub(Epoch) / time.Millisecond)
	if ts >= 1<<timestampBits {
		return 0, message.NewError(message.Abort, "clock is past the end of the id space")
	}

	switch {
	case ts > u.lastTS:
		u.lastTS = ts
		u.seq = 0
	case u.seq < maxSeq:
		u.seq++
	default:
		u.lastTS++
		u.seq = 0
		u.logger.WithField("ts", u.lastTS).Debug("Sequence exhausted, advancing timestamp")
	}

	atomic.AddUint64(&u.generated, 1)

	return u.lastTS<<(nodeBits+seqBits) | u.index<<seqBits | u.seq, nil
}

// Stats implements node.StatsProvider.
func (u *UniqueIDs) Stats() map[string]string {
	return map[string]string{
		"ids_generated": strconv.FormatUint(atomic.LoadUint64(&u.generated), 10),
	}
}
