package foxglove

import "time"

// nowNanos returns the current wall-clock time as Unix nanoseconds, the
// unit every Metadata.LogTime and wire-protocol timestamp is expressed
// in.
func nowNanos() uint64 {
	return uint64(time.Now().UnixNano())
}
