// Package ids provides the id and group id generators injected into the ledger.
package ids

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Counter is a monotonic transaction id source.
type Counter struct {
	last atomic.Int64
}

// NewCounter returns a counter whose first id is start+1.
func NewCounter(start int64) *Counter {
	c := &Counter{}
	c.last.Store(start)
	return c
}

// NewSessionCounter seeds the counter with the current unix time in
// milliseconds so ids sort after any id handed out by an earlier session.
func NewSessionCounter() *Counter {
	return NewCounter(time.Now().UnixMilli())
}

func (c *Counter) NextID() int64 {
	return c.last.Add(1)
}

// UUIDGroups hands out random version 4 group ids.
type UUIDGroups struct{}

func (UUIDGroups) NextGroupID() string {
	return uuid.NewString()
}

// SequenceGroups hands out prefix-1, prefix-2, ... for deterministic tests.
type SequenceGroups struct {
	mu     sync.Mutex
	Prefix string
	n      int
}

func (s *SequenceGroups) NextGroupID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "grp"
	}
	return prefix + "-" + strconv.Itoa(s.n)
}
