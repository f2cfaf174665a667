package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// Metadata represents the headers carried alongside a message.
type Metadata map[string]string

// Reserved keys used by the routing core. User modules should not overwrite
// them on outgoing messages.
const (
	// KeyCorrelationID links a request message to its eventual reply. Replies
	// echo the value verbatim.
	KeyCorrelationID = "correlation_id"

	// KeyReplyTo names the topic the reply to a request should be published to.
	KeyReplyTo = "fs_reply_to"

	// KeyError carries the failure description on an error reply.
	KeyError = "fs_error"

	// KeySourceTopic records the topic a message was consumed from.
	KeySourceTopic = "fs_source_topic"

	// KeyModule records the module that produced an outgoing message.
	KeyModule = "fs_module"
)

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	cloned[key] = value
	return cloned
}

// CorrelationID returns the correlation id header, or "" when absent.
func (m Metadata) CorrelationID() string { return m[KeyCorrelationID] }

// ReplyTo returns the reply destination header, or "" when absent.
func (m Metadata) ReplyTo() string { return m[KeyReplyTo] }

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// FromWatermill converts Watermill message metadata.
func FromWatermill(md message.Metadata) Metadata {
	result := make(Metadata, len(md))
	for k, v := range md {
		result[k] = v
	}
	return result
}

// ToWatermill converts metadata into a Watermill map.
func ToWatermill(md Metadata) message.Metadata {
	wm := make(message.Metadata, len(md))
	for k, v := range md {
		wm[k] = v
	}
	return wm
}
