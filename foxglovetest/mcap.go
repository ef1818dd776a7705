package foxglovetest

import (
	"bytes"
	"fmt"

	"github.com/foxglove/mcap/go/mcap"
)

// ReadSummary parses the summary section (schemas, channels, statistics)
// from a finished in-memory MCAP file, for asserting what a recording.Sink
// actually wrote without touching the filesystem.
func ReadSummary(data []byte) (*mcap.Info, error) {
	reader, err := mcap.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("foxglovetest: open mcap reader: %w", err)
	}
	defer reader.Close()

	info, err := reader.Info()
	if err != nil {
		return nil, fmt.Errorf("foxglovetest: read mcap summary: %w", err)
	}
	return info, nil
}

// ReadMessages decodes every message record in data, in file order, for
// tests that need to assert on payload contents rather than just counts.
func ReadMessages(data []byte) ([]*mcap.Message, error) {
	reader, err := mcap.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("foxglovetest: open mcap reader: %w", err)
	}
	defer reader.Close()

	it, err := reader.Messages()
	if err != nil {
		return nil, fmt.Errorf("foxglovetest: open mcap message iterator: %w", err)
	}
	defer it.Close()

	var out []*mcap.Message
	for {
		_, _, message, err := it.NextInto(nil)
		if err != nil {
			break
		}
		out = append(out, message)
	}
	return out, nil
}
