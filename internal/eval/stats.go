package eval

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats are evaluation counters. They only grow until Manager.ClearCache.
type Stats struct {
	CacheHits          int64
	CacheMisses        int64
	OperationsExecuted int64
	MemoryAllocated    int64 // Bytes of results produced by executed operations.
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("cache hits=%s misses=%s, operations=%s, memory=%s",
		humanize.Comma(s.CacheHits), humanize.Comma(s.CacheMisses),
		humanize.Comma(s.OperationsExecuted), humanize.Bytes(uint64(s.MemoryAllocated)))
}
