package foxglove

import "sort"

// ChannelDescriptor is the immutable record describing a topic's wire
// encoding and schema. Once returned from Context.RegisterChannel it
// never mutates; callers may share the pointer freely.
type ChannelDescriptor struct {
	ID              ChannelID
	Topic           string
	MessageEncoding string
	Metadata        map[string]string
	Schema          *Schema
}

// SortedMetadataKeys returns the descriptor's metadata keys in sorted
// order, the iteration order required when metadata needs to be
// serialized deterministically (e.g. onto the wire or into an MCAP
// channel record).
func (d *ChannelDescriptor) SortedMetadataKeys() []string {
	keys := make([]string, 0, len(d.Metadata))
	for k := range d.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compatible reports whether two descriptors describe the same logical
// channel, ignoring ID: same topic, encoding, metadata, and schema.
// Context.RegisterChannel does not consult it: a second live channel on
// a topic is rejected whether or not the descriptors are compatible.
func (d *ChannelDescriptor) compatible(other *ChannelDescriptor) bool {
	if d.Topic != other.Topic || d.MessageEncoding != other.MessageEncoding {
		return false
	}
	if !d.Schema.Equal(other.Schema) {
		return false
	}
	return metadataEqual(d.Metadata, other.Metadata)
}

func metadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
