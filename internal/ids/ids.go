// Package ids hands out process-unique integer identifiers, the same
// role internal.NextId/GetId play in the teacher: correlating retry
// attempts and device commands in log output.
package ids

import "sync/atomic"

var counter atomic.Int64

// Next returns a unique integer for this process. Thread-safe.
func Next() int64 {
	return counter.Add(1)
}
