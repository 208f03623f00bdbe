// Package stats provides the shared task-statistics sink populated by
// remote tasks during query execution.
package stats

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// TaskStats describes the work performed by one task attempt.
type TaskStats struct {
	FragmentID  string
	Partition   int32
	Attempt     int32
	Elapsed     time.Duration
	InputRows   int64
	OutputRows  int64
	OutputBytes int64
}

// Collector accumulates TaskStats from many concurrently running tasks. It
// is written to by workers throughout execution and read once, after all
// collection for the query has completed.
type Collector struct {
	inputRows   *xsync.Counter
	outputRows  *xsync.Counter
	outputBytes *xsync.Counter

	mut   sync.Mutex
	tasks []TaskStats
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		inputRows:   xsync.NewCounter(),
		outputRows:  xsync.NewCounter(),
		outputBytes: xsync.NewCounter(),
	}
}

// Add records the stats of one completed task. Add is safe for concurrent
// use.
func (c *Collector) Add(ts TaskStats) {
	c.inputRows.Add(ts.InputRows)
	c.outputRows.Add(ts.OutputRows)
	c.outputBytes.Add(ts.OutputBytes)

	c.mut.Lock()
	c.tasks = append(c.tasks, ts)
	c.mut.Unlock()
}

// Snapshot returns the per-task stats recorded so far. It must only be
// called after all collection for the query has completed.
func (c *Collector) Snapshot() []TaskStats {
	c.mut.Lock()
	defer c.mut.Unlock()
	out := make([]TaskStats, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// TotalInputRows reports the summed input rows across all recorded tasks.
func (c *Collector) TotalInputRows() int64 { return c.inputRows.Value() }

// TotalOutputRows reports the summed output rows across all recorded tasks.
func (c *Collector) TotalOutputRows() int64 { return c.outputRows.Value() }

// TotalOutputBytes reports the summed output bytes across all recorded
// tasks.
func (c *Collector) TotalOutputBytes() int64 { return c.outputBytes.Value() }
