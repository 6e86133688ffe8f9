package guard

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCapacity bounds how many fingerprints a Memory guard keeps. Under a
// flood of distinct submissions the least recently seen ones are evicted
// first.
const MemoryCapacity = 10000

// Memory is a process-local Guard. Its state is lost on restart and is not
// shared between instances; use Postgres when more than one API process
// serves the same tenants.
type Memory struct {
	mu   sync.Mutex // makes lookup and record one step
	seen *expirable.LRU[string, time.Time]
	now  func() time.Time
}

// NewMemory returns an empty Memory guard. A nil clock means time.Now.
func NewMemory(now func() time.Time) *Memory {
	return newMemory(now, MemoryCapacity)
}

func newMemory(now func() time.Time, capacity int) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		seen: expirable.NewLRU[string, time.Time](capacity, nil, Retention),
		now:  now,
	}
}

// Check compares against the acceptance time stored for the fingerprint, so
// the window follows the guard's clock rather than the cache's expiry.
func (m *Memory) Check(_ context.Context, fingerprint string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if at, ok := m.seen.Peek(fingerprint); ok && now.Sub(at) < Window {
		return Rejected, nil
	}
	m.seen.Add(fingerprint, now)
	return Accepted, nil
}

// Len returns the number of remembered fingerprints.
func (m *Memory) Len() int {
	return m.seen.Len()
}
