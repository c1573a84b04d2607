package message

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"
)

var jsonHandle = newJSONHandle()

func newJSONHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}

// wireMessage and wireBody are the decoding targets of an envelope. wireBody
// is the union of the fields of every variant; Decode picks the ones that
// belong to the tagged variant.
type wireMessage struct {
	Src  string    `codec:"src"`
	Dest string    `codec:"dest"`
	Body *wireBody `codec:"body"`
}

type wireBody struct {
	Type       string              `codec:"type"`
	MsgID      *uint64             `codec:"msg_id"`
	InReplyTo  *uint64             `codec:"in_reply_to"`
	NodeID     *string             `codec:"node_id"`
	NodeIDs    []string            `codec:"node_ids"`
	Topology   map[string][]string `codec:"topology"`
	Message    *int32              `codec:"message"`
	Messages   []int32             `codec:"messages"`
	Recipients []string            `codec:"recipients"`
	Echo       *string             `codec:"echo"`
	ID         *uint64             `codec:"id"`
	Code       *int                `codec:"code"`
	Text       string              `codec:"text"`
}

// Encode returns the single-line JSON representation of m, without a trailing
// newline.
func Encode(m *Message) ([]byte, error) {
	if m.Body.Payload == nil {
		return nil, fmt.Errorf("cannot encode %s: no payload", m)
	}

	body := map[string]interface{}{
		"type": m.Body.Payload.Type(),
	}
	if m.Body.MsgID != nil {
		body["msg_id"] = *m.Body.MsgID
	}
	if m.Body.InReplyTo != nil {
		body["in_reply_to"] = *m.Body.InReplyTo
	}
	m.Body.Payload.fields(body)

	env := map[string]interface{}{
		"src":  m.Src,
		"dest": m.Dest,
		"body": body,
	}

	var out []byte
	if err := codec.NewEncoderBytes(&out, jsonHandle).Encode(env); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode parses one line into a Message. It returns a *MalformedEnvelopeError
// when the line is not a well-formed envelope, when the type tag is unknown, or
// when a field required by the variant is missing.
func Decode(line []byte) (*Message, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, malformed(line, nil, "not a JSON object")
	}

	var w wireMessage
	dec := codec.NewDecoderBytes(line, jsonHandle)
	if err := dec.Decode(&w); err != nil {
		return nil, malformed(line, err, "invalid JSON")
	}
	if rest := bytes.TrimSpace(line[dec.NumBytesRead():]); len(rest) > 0 {
		return nil, malformed(line, nil, "trailing data after envelope")
	}

	switch {
	case w.Src == "":
		return nil, malformed(line, nil, "missing src")
	case w.Dest == "":
		return nil, malformed(line, nil, "missing dest")
	case w.Body == nil:
		return nil, malformed(line, nil, "missing body")
	case w.Body.Type == "":
		return nil, malformed(line, nil, "missing body type")
	}

	payload, err := w.Body.payload(line)
	if err != nil {
		return nil, err
	}

	return &Message{
		Src:  w.Src,
		Dest: w.Dest,
		Body: Body{
			MsgID:     w.Body.MsgID,
			InReplyTo: w.Body.InReplyTo,
			Payload:   payload,
		},
	}, nil
}

func (b *wireBody) payload(line []byte) (Payload, error) {
	missing := func(field string) error {
		return malformed(line, nil, "%s without %s", b.Type, field)
	}

	switch b.Type {
	case TypeInit:
		if b.NodeID == nil {
			return nil, missing("node_id")
		}
		return &Init{NodeID: *b.NodeID, NodeIDs: nonNilStrings(b.NodeIDs)}, nil
	case TypeInitOk:
		return &InitOk{}, nil
	case TypeTopology:
		if b.Topology == nil {
			return nil, missing("topology")
		}
		return &Topology{Topology: b.Topology}, nil
	case TypeTopologyOk:
		return &TopologyOk{}, nil
	case TypeBroadcast:
		if b.Message == nil {
			return nil, missing("message")
		}
		return &Broadcast{Message: *b.Message}, nil
	case TypeBroadcastOk:
		return &BroadcastOk{}, nil
	case TypeRead:
		return &Read{}, nil
	case TypeReadOk:
		msgs := b.Messages
		if msgs == nil {
			msgs = []int32{}
		}
		return &ReadOk{Messages: msgs}, nil
	case TypeGossip:
		if b.Message == nil {
			return nil, missing("message")
		}
		return &Gossip{Message: *b.Message, Recipients: nonNilStrings(b.Recipients)}, nil
	case TypeGossipOk:
		if b.NodeID == nil {
			return nil, missing("node_id")
		}
		if b.Message == nil {
			return nil, missing("message")
		}
		return &GossipOk{NodeID: *b.NodeID, Message: *b.Message}, nil
	case TypeEcho:
		if b.Echo == nil {
			return nil, missing("echo")
		}
		return &Echo{Echo: *b.Echo}, nil
	case TypeEchoOk:
		if b.Echo == nil {
			return nil, missing("echo")
		}
		return &EchoOk{Echo: *b.Echo}, nil
	case TypeGenerate:
		return &Generate{}, nil
	case TypeGenerateOk:
		if b.ID == nil {
			return nil, missing("id")
		}
		return &GenerateOk{ID: *b.ID}, nil
	case TypeError:
		if b.Code == nil {
			return nil, missing("code")
		}
		return &Error{Code: ErrorCode(*b.Code), Text: b.Text}, nil
	default:
		return nil, malformed(line, nil, "unknown body type %q", b.Type)
	}
}
