package message

import "fmt"

// Message is the envelope of every exchange between nodes and clients. It is
// not modified once built; Reply derives a new envelope from it.
type Message struct {
	Src  string
	Dest string
	Body Body
}

// Body carries the correlation fields and the payload of a Message. A nil
// MsgID or InReplyTo means the field is absent.
type Body struct {
	MsgID     *uint64
	InReplyTo *uint64
	Payload   Payload
}

// New returns a Message from src to dest with the given payload and no
// correlation fields.
func New(src, dest string, p Payload) *Message {
	return &Message{
		Src:  src,
		Dest: dest,
		Body: Body{Payload: p},
	}
}

// Type returns the wire tag of the message's payload.
func (m *Message) Type() string {
	if m.Body.Payload == nil {
		return ""
	}
	return m.Body.Payload.Type()
}

// IsReply reports whether the message answers another message.
func (m *Message) IsReply() bool {
	return m.Body.InReplyTo != nil
}

// Reply is shorthand for Reply(m, p).
func (m *Message) Reply(p Payload) *Message {
	return Reply(m, p)
}

func (m *Message) String() string {
	id := "-"
	if m.Body.MsgID != nil {
		id = fmt.Sprint(*m.Body.MsgID)
	}
	return fmt.Sprintf("%s->%s %s#%s", m.Src, m.Dest, m.Type(), id)
}

// Reply builds the answer to req: source and destination are swapped and
// in_reply_to is set to req's msg_id when req has one. The reply has no msg_id
// of its own. Reply has no side effects.
func Reply(req *Message, p Payload) *Message {
	return &Message{
		Src:  req.Dest,
		Dest: req.Src,
		Body: Body{
			InReplyTo: copyID(req.Body.MsgID),
			Payload:   p,
		},
	}
}

// ID returns a pointer to a copy of id, for filling optional body fields.
func ID(id uint64) *uint64 {
	return &id
}

func copyID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	return ID(*id)
}
