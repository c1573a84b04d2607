// Package message defines the envelopes exchanged by duststorm nodes and the
// codec that frames them on the wire.
//
// Every message is a Message (the envelope) carrying a source, a destination
// and a Body. The Body holds the optional correlation fields (msg_id and
// in_reply_to) and exactly one Payload. Payload is a closed sum type: the only
// implementations are the variant structs of this package (Init, Topology,
// Broadcast, Gossip, Error, ...), and the "type" tag of the wire format is
// derived from the variant.
//
// Wire format
//
// One JSON object per line:
//
//	{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":3,"message":42}}
//
// msg_id and in_reply_to are omitted when absent, never serialised as null.
// List fields (messages, recipients, node_ids) are always present, possibly
// empty. Encode and Decode use the ugorji JSON handle with canonical (sorted)
// keys, so the same envelope always produces the same line.
package message
